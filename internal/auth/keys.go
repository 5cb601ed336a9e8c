package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/mailmerge/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	idBytes     = 8
	secretBytes = 32
)

var ErrMalformedKey = errors.New("auth: malformed key")

// Hash returns a bcrypt hash of the key secret.
func Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	return string(b), err
}

// Verify reports whether secret matches the stored bcrypt hash.
func Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// NewID generates a random hex ID.
func NewID() string {
	b := make([]byte, idBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateSecret returns a 32-byte cryptographically random hex string.
func GenerateSecret() string {
	b := make([]byte, secretBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateKey returns a new key in "<id>.<secret>" form along with its parts.
func GenerateKey() (key, id, secret string) {
	id, secret = NewID(), GenerateSecret()
	return id + "." + secret, id, secret
}

// ParseKey splits a presented key into its id and secret.
func ParseKey(key string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || len(id) != 2*idBytes || len(secret) != 2*secretBytes {
		return "", "", ErrMalformedKey
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", "", ErrMalformedKey
	}
	return id, secret, nil
}

// KeyCreator is the minimal interface needed for seeding the master key.
type KeyCreator interface {
	CountAll(ctx context.Context) (int, error)
	Create(ctx context.Context, id, name string, scope model.Scope, keyHash string) error
}

// SeedMasterKey stores masterKey as an admin key if no keys exist yet.
func SeedMasterKey(ctx context.Context, keys KeyCreator, masterKey string) error {
	if masterKey == "" {
		return nil
	}

	id, secret, err := ParseKey(masterKey)
	if err != nil {
		return err
	}

	count, err := keys.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := Hash(secret)
	if err != nil {
		return err
	}
	if err := keys.Create(ctx, id, "master", model.ScopeAdmin, hash); err != nil {
		return err
	}
	slog.Info("seed: created master key", "id", id)
	return nil
}
