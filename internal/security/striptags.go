package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer はユーザー入力の表示名・組織名からHTMLタグと制御文字を除去する。
// メール件名やテンプレートへ埋め込む前に使用する。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type NameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerの新しいインスタンスを生成する。
func NewNameSanitizer() *NameSanitizer {
	return &NameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグと制御文字を除去したテキストを返す。
// CR・LFを含む制御文字はメールヘッダーに到達してはならない。
// 空文字列の入力には空文字列を返す。
func (s *NameSanitizer) Sanitize(raw string) string {
	return stripControlChars(s.policy.Sanitize(raw))
}

// stripControlChars はC0制御文字（改行・タブを含む）とDELを除去する。
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
