package model

import "time"

type Scope string

const (
	ScopeFunction Scope = "function"
	ScopeAdmin    Scope = "admin"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeFunction || s == ScopeAdmin
}

// Allows reports whether a key with scope s may act with scope required.
// Admin keys can do everything function keys can.
func (s Scope) Allows(required Scope) bool {
	return s == required || s == ScopeAdmin
}

// FunctionKey is a stored API key. The secret itself is never kept.
type FunctionKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Scope      Scope      `json:"scope"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
}

// Revoked reports whether the key has been revoked.
func (k *FunctionKey) Revoked() bool {
	return k.RevokedAt != nil
}
