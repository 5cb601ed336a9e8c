package model

import "time"

// Invocation records one EmailSetup call. Only counts are kept, never
// template text, tokens or addresses.
type Invocation struct {
	ID              string        `json:"id"`
	KeyID           string        `json:"keyId,omitempty"`
	Recipients      int           `json:"recipients"`
	Tokens          int           `json:"tokens"`
	RecipientTokens int           `json:"recipientTokens"`
	Unresolved      int           `json:"unresolved"`
	Duration        time.Duration `json:"durationNs"`
	CreatedAt       time.Time     `json:"createdAt"`
}
