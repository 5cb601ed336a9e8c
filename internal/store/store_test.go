package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailmerge/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: driverPostgres}
	got := pg.rebind("UPDATE t SET a = ? WHERE b = ? AND c = ?")
	if want := "UPDATE t SET a = $1 WHERE b = $2 AND c = $3"; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &DB{driver: driverSQLite}
	if got := lite.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestDriverFor(t *testing.T) {
	cases := []struct {
		url, driver, dsn string
	}{
		{"postgres://u@h/db", driverPostgres, "postgres://u@h/db"},
		{"postgresql://u@h/db", driverPostgres, "postgresql://u@h/db"},
		{"sqlite:///tmp/x.db", driverSQLite, "/tmp/x.db"},
		{"mailmerge.db", driverSQLite, "mailmerge.db"},
	}
	for _, tc := range cases {
		driver, dsn := driverFor(tc.url)
		if driver != tc.driver || dsn != tc.dsn {
			t.Errorf("driverFor(%q) = (%q, %q), want (%q, %q)", tc.url, driver, dsn, tc.driver, tc.dsn)
		}
	}
}

func TestKeyStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	keys := NewKeyStore(openTestDB(t))

	if n, err := keys.CountAll(ctx); err != nil || n != 0 {
		t.Fatalf("CountAll = (%d, %v), want (0, nil)", n, err)
	}

	if err := keys.Create(ctx, "0123456789abcdef", "ci", model.ScopeFunction, "hash"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	k, hash, err := keys.GetByID(ctx, "0123456789abcdef")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if k.Name != "ci" || k.Scope != model.ScopeFunction || hash != "hash" {
		t.Errorf("unexpected key %+v hash %q", k, hash)
	}
	if k.LastUsedAt != nil || k.Revoked() {
		t.Errorf("new key should be unused and active: %+v", k)
	}

	if err := keys.UpdateLastUsed(ctx, k.ID); err != nil {
		t.Fatalf("UpdateLastUsed: %v", err)
	}
	if err := keys.Revoke(ctx, k.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	k, _, err = keys.GetByID(ctx, k.ID)
	if err != nil {
		t.Fatalf("GetByID after revoke: %v", err)
	}
	if k.LastUsedAt == nil {
		t.Error("expected last_used_at to be set")
	}
	if !k.Revoked() {
		t.Error("expected key to be revoked")
	}

	list, err := keys.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(list) != 1 || list[0].ID != k.ID {
		t.Errorf("ListAll = %+v", list)
	}
}

func TestKeyStoreNotFound(t *testing.T) {
	ctx := context.Background()
	keys := NewKeyStore(openTestDB(t))

	if _, _, err := keys.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID = %v, want ErrNotFound", err)
	}
	if err := keys.Revoke(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Revoke = %v, want ErrNotFound", err)
	}
}

func TestInvocationStore(t *testing.T) {
	ctx := context.Background()
	invocations := NewInvocationStore(openTestDB(t))

	now := time.Now()
	old := model.Invocation{Recipients: 1, CreatedAt: now.Add(-48 * time.Hour)}
	recent := model.Invocation{KeyID: "k", Recipients: 2, Tokens: 3, RecipientTokens: 2, Unresolved: 1,
		Duration: 1500 * time.Microsecond, CreatedAt: now}

	for _, inv := range []model.Invocation{old, recent} {
		if err := invocations.Record(ctx, inv); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := invocations.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(got))
	}
	first := got[0]
	if first.ID == "" || first.KeyID != "k" || first.Tokens != 3 || first.Unresolved != 1 {
		t.Errorf("unexpected newest invocation %+v", first)
	}
	if first.Duration != 1500*time.Microsecond {
		t.Errorf("duration = %s", first.Duration)
	}

	n, err := invocations.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}

	got, err = invocations.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 invocation after prune, got %d", len(got))
	}
}
