// Package merge resolves bracketed [Tag] placeholders in email templates.
package merge

// Template is the unresolved email content.
type Template struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Message is a template after substitution.
type Message struct {
	To      string
	Cc      string
	Subject string
	Body    string
}

// Resolve formats the recipient lists as tags and resolves them against
// recipientTokens. Subject and body are resolved against tokens.
func Resolve(t Template, tokens, recipientTokens TokenMap) Message {
	to := FormatRecipients(t.To)
	cc := FormatRecipients(t.Cc)

	return Message{
		To:      ReplaceTokens(to, recipientTokens),
		Cc:      ReplaceTokens(cc, recipientTokens),
		Subject: ReplaceTokens(t.Subject, tokens),
		Body:    ReplaceTokens(t.Body, tokens),
	}
}

// Unresolved returns the tags still present in any field of m.
func (m Message) Unresolved() []string {
	var tags []string
	seen := make(map[string]bool)
	for _, field := range []string{m.To, m.Cc, m.Subject, m.Body} {
		for _, tag := range Tags(field) {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
