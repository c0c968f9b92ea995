package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokedRepo stores ids of tokens that were signed out before expiry
// (table revoked_tokens, see pkg/database/migrations).
type RevokedRepo struct {
	db *sqlx.DB
}

func NewRevokedRepo(db *sqlx.DB) *RevokedRepo {
	return &RevokedRepo{db: db}
}

// Revoke records tokenID until expiresAt. Revoking twice is a no-op.
func (r *RevokedRepo) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	const q = `INSERT INTO revoked_tokens (token_id, user_id, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, tokenID, userID, expiresAt)
	return err
}

// IsRevoked reports whether tokenID is on the list and not yet expired.
func (r *RevokedRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > NOW())`
	var revoked bool
	if err := r.db.GetContext(ctx, &revoked, q, tokenID); err != nil {
		return false, err
	}
	return revoked, nil
}

// Prune deletes entries whose tokens have expired on their own.
func (r *RevokedRepo) Prune(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
