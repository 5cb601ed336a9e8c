package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mailmerge/internal/model"
)

func TestGenerateAndParseKey(t *testing.T) {
	key, id, secret := GenerateKey()

	if key != id+"."+secret {
		t.Fatalf("key %q is not id.secret", key)
	}

	gotID, gotSecret, err := ParseKey(key)
	if err != nil {
		t.Fatalf("ParseKey returned an error: %v", err)
	}
	if gotID != id || gotSecret != secret {
		t.Errorf("ParseKey = (%q, %q), want (%q, %q)", gotID, gotSecret, id, secret)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	_, id, secret := GenerateKey()

	for _, key := range []string{
		"",
		id,
		id + secret,
		"zzzzzzzzzzzzzzzz." + secret,
		id + "." + secret[:10],
		id[:4] + "." + secret,
	} {
		if _, _, err := ParseKey(key); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("ParseKey(%q) = %v, want ErrMalformedKey", key, err)
		}
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !Verify(hash, "s3cret") {
		t.Error("expected matching secret to verify")
	}
	if Verify(hash, "other") {
		t.Error("expected wrong secret to fail")
	}
}

type fakeKeys struct {
	count   int
	created []string
	scope   model.Scope
}

func (f *fakeKeys) CountAll(ctx context.Context) (int, error) { return f.count, nil }

func (f *fakeKeys) Create(ctx context.Context, id, name string, scope model.Scope, keyHash string) error {
	f.created = append(f.created, id)
	f.scope = scope
	return nil
}

func TestSeedMasterKey(t *testing.T) {
	key, id, _ := GenerateKey()

	t.Run("empty store", func(t *testing.T) {
		keys := &fakeKeys{}
		if err := SeedMasterKey(context.Background(), keys, key); err != nil {
			t.Fatalf("SeedMasterKey: %v", err)
		}
		if len(keys.created) != 1 || keys.created[0] != id {
			t.Errorf("expected key %s to be created, got %v", id, keys.created)
		}
		if keys.scope != model.ScopeAdmin {
			t.Errorf("expected admin scope, got %s", keys.scope)
		}
	})

	t.Run("existing keys", func(t *testing.T) {
		keys := &fakeKeys{count: 2}
		if err := SeedMasterKey(context.Background(), keys, key); err != nil {
			t.Fatalf("SeedMasterKey: %v", err)
		}
		if len(keys.created) != 0 {
			t.Errorf("expected no key to be created, got %v", keys.created)
		}
	})

	t.Run("unset", func(t *testing.T) {
		keys := &fakeKeys{}
		if err := SeedMasterKey(context.Background(), keys, ""); err != nil {
			t.Fatalf("SeedMasterKey: %v", err)
		}
		if len(keys.created) != 0 {
			t.Errorf("expected no key to be created")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		err := SeedMasterKey(context.Background(), &fakeKeys{}, "not-a-key")
		if err == nil || !strings.Contains(err.Error(), "malformed") {
			t.Errorf("expected malformed key error, got %v", err)
		}
	})
}
