package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mailmerge/internal/model"
	"github.com/mailmerge/internal/store"
)

var ErrInvalidKey = errors.New("auth: invalid or revoked key")

type keyGetter interface {
	GetByID(ctx context.Context, id string) (*model.FunctionKey, string, error)
	UpdateLastUsed(ctx context.Context, id string) error
}

// Authenticator resolves presented keys to stored FunctionKeys.
type Authenticator struct {
	keys keyGetter
}

func NewAuthenticator(keys keyGetter) *Authenticator {
	return &Authenticator{keys: keys}
}

// Authenticate returns the key identified by rawKey. Unknown, revoked and
// malformed keys all yield ErrInvalidKey.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*model.FunctionKey, error) {
	id, secret, err := ParseKey(rawKey)
	if err != nil {
		return nil, ErrInvalidKey
	}

	key, hash, err := a.keys.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidKey
	} else if err != nil {
		return nil, err
	}

	if key.Revoked() || !Verify(hash, secret) {
		return nil, ErrInvalidKey
	}

	if err := a.keys.UpdateLastUsed(ctx, id); err != nil {
		slog.Warn("auth: failed to update last used", "id", id, "err", err)
	}
	return key, nil
}
