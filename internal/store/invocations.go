package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mailmerge/internal/model"
)

type InvocationStore struct {
	db *DB
}

func NewInvocationStore(db *DB) *InvocationStore {
	return &InvocationStore{db: db}
}

// Record inserts inv, assigning an ID and timestamp when they are unset.
func (s *InvocationStore) Record(ctx context.Context, inv model.Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO invocations (id, key_id, recipients, tokens, recipient_tokens, unresolved, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID, inv.KeyID, inv.Recipients, inv.Tokens, inv.RecipientTokens, inv.Unresolved,
		int64(inv.Duration), inv.CreatedAt.UTC().UnixMilli(),
	)
	return err
}

// Recent returns up to limit invocations, newest first.
func (s *InvocationStore) Recent(ctx context.Context, limit int) ([]model.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, s.db.rebind(`
		SELECT id, key_id, recipients, tokens, recipient_tokens, unresolved, duration_ns, created_at
		FROM invocations ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invocations := []model.Invocation{}
	for rows.Next() {
		var (
			inv       model.Invocation
			duration  int64
			createdAt int64
		)
		if err := rows.Scan(&inv.ID, &inv.KeyID, &inv.Recipients, &inv.Tokens, &inv.RecipientTokens,
			&inv.Unresolved, &duration, &createdAt); err != nil {
			return nil, err
		}
		inv.Duration = time.Duration(duration)
		inv.CreatedAt = time.UnixMilli(createdAt).UTC()
		invocations = append(invocations, inv)
	}
	return invocations, rows.Err()
}

// DeleteOlderThan removes invocations created before cutoff and returns how
// many were removed.
func (s *InvocationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.rebind(`DELETE FROM invocations WHERE created_at < ?`),
		cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
