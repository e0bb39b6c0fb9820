package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinLength = 3
	// MaxLength 与 DNS label 长度上限一致，保证 slug 可直接作为子域名。
	MaxLength = 63
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// 无法通过去除变音符号得到 ASCII 的常见拉丁字母。
var latinFolds = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"ı", "i",
)

var reserved = map[string]struct{}{
	"www":   {},
	"api":   {},
	"app":   {},
	"admin": {},
}

// Make 将用户输入的地址规范化为小写、连字符分隔的 URL 安全标识。
// Make(Make(x)) == Make(x)。
func Make(input string) string {
	s := fold(strings.ToLower(strings.TrimSpace(input)))
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// fold 去掉变音符号（é → e, ü → u），其余非 ASCII 字符交给后续的连字符折叠。
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return latinFolds.Replace(out)
}

// Valid 判断规范化后的 slug 是否可用。
func Valid(s string) bool {
	return len(s) >= MinLength && len(s) <= MaxLength && Make(s) == s
}

// Reserved 判断 slug 是否为平台保留子域名。
func Reserved(s string) bool {
	_, ok := reserved[s]
	return ok
}
