package security

import (
	"strings"
	"testing"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"bonjour", "bonjour"},
		{"<script>", "&lt;script&gt;"},
		{`a"b'c`, "a&quot;b&#39;c"},
		{"a&b", "a&amp;b"},
		{"<a href=\"x\">lien</a>", "&lt;a href=&quot;x&quot;&gt;lien&lt;/a&gt;"},
		{"123456", "123456"},
	}

	for _, tt := range tests {
		if got := EscapeHTML(tt.in); got != tt.want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// エスケープ後の文字列に生の特殊文字が残らないことを検証する
func TestEscapeHTML_NoRawSpecialChars(t *testing.T) {
	inputs := []string{
		`<img src=x onerror="alert(1)">`,
		`'"<>&`,
		"texte & <b>gras</b>",
	}

	for _, in := range inputs {
		got := EscapeHTML(in)
		if strings.ContainsAny(got, `<>"'`) {
			t.Errorf("EscapeHTML(%q) = %q に生の特殊文字が含まれる", in, got)
		}
		// 残っている&はすべて実体参照の開始であること
		for i := 0; i < len(got); i++ {
			if got[i] == '&' {
				rest := got[i:]
				if !strings.HasPrefix(rest, "&amp;") &&
					!strings.HasPrefix(rest, "&lt;") &&
					!strings.HasPrefix(rest, "&gt;") &&
					!strings.HasPrefix(rest, "&quot;") &&
					!strings.HasPrefix(rest, "&#39;") {
					t.Errorf("EscapeHTML(%q) = %q にエスケープされていない&が含まれる", in, got)
				}
			}
		}
	}
}

// エスケープは冪等ではなく、二重適用で実体参照が再エスケープされることを検証する。
// 冪等性を仮定せず、正確な二重エスケープ出力を確認する。
func TestEscapeHTML_DoubleEscapeIsNotIdempotent(t *testing.T) {
	once := EscapeHTML("<b>")
	if once != "&lt;b&gt;" {
		t.Fatalf("1回目のエスケープ: %q", once)
	}

	twice := EscapeHTML(once)
	if twice != "&amp;lt;b&amp;gt;" {
		t.Errorf("2回目のエスケープ = %q, want %q", twice, "&amp;lt;b&amp;gt;")
	}

	if got := EscapeHTML(EscapeHTML("&")); got != "&amp;amp;" {
		t.Errorf("EscapeHTML(EscapeHTML(\"&\")) = %q, want \"&amp;amp;\"", got)
	}
}

func TestNameSanitizer_StripsTagsFromPersonNames(t *testing.T) {
	s := NewNameSanitizer()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Jean Dupont", "Jean Dupont"},
		{"<b>Jean</b>", "Jean"},
		{"<script>alert(1)</script>Jean", "Jean"},
		{"Équipe <i>Produit</i>", "Équipe Produit"},
	}

	for _, tt := range tests {
		if got := s.Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
