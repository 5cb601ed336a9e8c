package merge

import "strings"

// FormatRecipients wraps each recipient as a [recipient] tag and joins them
// with ";" so they can be resolved with a recipient TokenMap.
func FormatRecipients(recipients []string) string {
	if len(recipients) == 0 {
		return ""
	}

	tagged := make([]string, len(recipients))
	for i, r := range recipients {
		tagged[i] = "[" + r + "]"
	}
	return strings.Join(tagged, ";")
}
