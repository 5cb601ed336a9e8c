package model

import (
	"errors"

	"github.com/mailmerge/internal/merge"
)

// EmailRequest is the EmailSetup payload.
type EmailRequest struct {
	Templates       *EmailFields      `json:"templates" yaml:"templates"`
	Tokens          map[string]string `json:"tokens" yaml:"tokens"`
	RecipientTokens map[string]string `json:"recipientTokens" yaml:"recipientTokens"`
}

// EmailFields holds the template text containing [Tags].
type EmailFields struct {
	To      []string `json:"to" yaml:"to"`
	Cc      []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	Subject *string  `json:"subject" yaml:"subject"`
	Body    *string  `json:"body" yaml:"body"`
}

// EmailResponse is the resolved email.
type EmailResponse struct {
	To      string `json:"to" yaml:"to"`
	Cc      string `json:"cc" yaml:"cc"`
	Subject string `json:"subject" yaml:"subject"`
	Body    string `json:"body" yaml:"body"`
}

var (
	ErrMissingTemplates = errors.New("payload must contain 'templates'")
	ErrMissingTo        = errors.New("templates.to must contain at least one recipient")
	ErrMissingSubject   = errors.New("templates.subject is required")
	ErrMissingBody      = errors.New("templates.body is required")
)

// Validate reports the first missing required field.
func (r *EmailRequest) Validate() error {
	switch {
	case r.Templates == nil:
		return ErrMissingTemplates
	case len(r.Templates.To) == 0:
		return ErrMissingTo
	case r.Templates.Subject == nil:
		return ErrMissingSubject
	case r.Templates.Body == nil:
		return ErrMissingBody
	}
	return nil
}

// Template converts the validated request into a merge.Template.
func (r *EmailRequest) Template() merge.Template {
	t := merge.Template{To: r.Templates.To, Cc: r.Templates.Cc}
	if r.Templates.Subject != nil {
		t.Subject = *r.Templates.Subject
	}
	if r.Templates.Body != nil {
		t.Body = *r.Templates.Body
	}
	return t
}

// Resolve runs the request through merge.Resolve. Call Validate first.
func (r *EmailRequest) Resolve() merge.Message {
	return merge.Resolve(r.Template(), r.Tokens, r.RecipientTokens)
}

func NewEmailResponse(m merge.Message) EmailResponse {
	return EmailResponse{
		To:      m.To,
		Cc:      m.Cc,
		Subject: m.Subject,
		Body:    m.Body,
	}
}
