package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mailmerge/internal/model"
)

type KeyStore struct {
	db *DB
}

func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

func (s *KeyStore) CountAll(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM function_keys`).Scan(&n)
	return n, err
}

func (s *KeyStore) Create(ctx context.Context, id, name string, scope model.Scope, keyHash string) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO function_keys (id, name, scope, key_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		id, name, string(scope), keyHash, time.Now().UTC().UnixMilli(),
	)
	return err
}

// GetByID returns the key and its secret hash. Revoked keys are returned
// too; callers check FunctionKey.Revoked.
func (s *KeyStore) GetByID(ctx context.Context, id string) (*model.FunctionKey, string, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`
		SELECT id, name, scope, key_hash, created_at, last_used_at, revoked_at
		FROM function_keys WHERE id = ?`), id)

	k, hash, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	return k, hash, err
}

func (s *KeyStore) ListAll(ctx context.Context) ([]model.FunctionKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, scope, key_hash, created_at, last_used_at, revoked_at
		FROM function_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []model.FunctionKey{}
	for rows.Next() {
		k, _, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (s *KeyStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`UPDATE function_keys SET last_used_at = ? WHERE id = ?`),
		time.Now().UTC().UnixMilli(), id)
	return err
}

// Revoke marks the key as revoked. Revoking an already revoked key is a
// no-op; an unknown id returns ErrNotFound.
func (s *KeyStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.rebind(`
		UPDATE function_keys SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`),
		time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(row scanner) (*model.FunctionKey, string, error) {
	var (
		k                 model.FunctionKey
		scope, hash       string
		createdAt         int64
		lastUsed, revoked sql.NullInt64
	)
	if err := row.Scan(&k.ID, &k.Name, &scope, &hash, &createdAt, &lastUsed, &revoked); err != nil {
		return nil, "", err
	}
	k.Scope = model.Scope(scope)
	k.CreatedAt = time.UnixMilli(createdAt).UTC()
	k.LastUsedAt = millisPtr(lastUsed)
	k.RevokedAt = millisPtr(revoked)
	return &k, hash, nil
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
