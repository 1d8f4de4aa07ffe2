package gatekeeper

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// MagicTokens is the durable TokenStore variant backed by the magic_tokens
// table. Tokens survive restarts and redemption is linearizable across
// replicas: the DELETE with RETURNING lets exactly one caller win.
type MagicTokens struct {
	db  *bun.DB
	now func() time.Time
}

var _ TokenStore = (*MagicTokens)(nil)

func NewMagicTokensRepository(db *bun.DB) *MagicTokens {
	return &MagicTokens{
		db:  db,
		now: time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (r *MagicTokens) WithClock(now func() time.Time) *MagicTokens {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *MagicTokens) Save(ctx context.Context, token, email string, expiresAt time.Time) error {
	record := &MagicToken{
		Token:     token,
		Email:     NormalizeEmail(email),
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// Consume deletes the row and returns its email. The expiry check happens
// after the delete, so an expired token is also removed on the way out.
func (r *MagicTokens) Consume(ctx context.Context, token string) (string, error) {
	record := &MagicToken{}

	err := r.db.NewDelete().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrMagicTokenInvalid
		}
		return "", err
	}

	if record.Expired(r.now()) {
		return "", ErrMagicTokenInvalid
	}

	return record.Email, nil
}

// PurgeExpired removes rows past their window; meant for a periodic sweep so
// abandoned tokens do not accumulate.
func (r *MagicTokens) PurgeExpired(ctx context.Context) (int, error) {
	res, err := r.db.NewDelete().
		Model((*MagicToken)(nil)).
		Where("?TableAlias.expires_at <= ?", r.now()).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
