package merge

import (
	"maps"
	"regexp"
	"slices"
	"unicode/utf8"
)

// TokenMap maps a tag name to its replacement value. Tag names match
// case-insensitively.
type TokenMap map[string]string

var tagPattern = regexp.MustCompile(`\[[^\[\]]*\]`)

// ReplaceTokens substitutes every [name] tag in content with the value for
// name in tokens. Names are matched case-insensitively and as literal text.
// Tags without a matching key are left as they are.
func ReplaceTokens(content string, tokens TokenMap) string {
	if content == "" || tokens == nil {
		return content
	}

	for _, name := range slices.Sorted(maps.Keys(tokens)) {
		re := regexp.MustCompile(`(?i)\[` + regexp.QuoteMeta(validUTF8(name)) + `\]`)
		content = re.ReplaceAllLiteralString(content, tokens[name])
	}
	return content
}

// validUTF8 replaces each invalid byte in s with U+FFFD, which is how the
// regexp package reads invalid bytes in the content being matched.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string([]rune(s))
}

// Tags returns the bracketed tags present in content, in order of first
// appearance.
func Tags(content string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range tagPattern.FindAllString(content, -1) {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
