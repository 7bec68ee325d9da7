// Package security はアプリケーションのセキュリティ機能を提供する。
//
// EscapeHTML は外部由来の文字列（OTPコード、メール由来の件名テキスト等）を
// HTMLコンテキストへ埋め込む前のエスケープを行う。
// StripTags はユーザー入力の表示名などからHTMLタグを除去する。
package security

import "strings"

// htmlEscaper はHTML特殊文字を実体参照へ置換する。
// アンパサンドを最初に置換することで、後続の置換が生成した実体参照を
// 二重エスケープしない順序になっている。
// 置換順序: & → &amp;, < → &lt;, > → &gt;, " → &quot;, ' → &#39;
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML は文字列をHTML埋め込み用にエスケープする。
// 純粋で全域な関数であり、失敗せず、切り詰めも行わない。
// 冪等ではない: 既にエスケープ済みの文字列を再度渡すと
// 実体参照のアンパサンドが再エスケープされる（例: &amp; → &amp;amp;）。
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
