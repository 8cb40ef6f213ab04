package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
)

type tokenRepo struct{ pool *pgxpool.Pool }

const tokenColumns = `id::text, family_id::text, user_id::text, token_hash, predecessor_id::text,
	issued_at, expires_at, rotated_at, revoked, revoked_at, user_agent, ip`

func scanToken(row pgx.Row) (*repository.RefreshToken, error) {
	var t repository.RefreshToken
	err := row.Scan(&t.ID, &t.FamilyID, &t.UserID, &t.TokenHash, &t.PredecessorID,
		&t.IssuedAt, &t.ExpiresAt, &t.RotatedAt, &t.Revoked, &t.RevokedAt, &t.UserAgent, &t.IP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

const insertToken = `
INSERT INTO refresh_tokens (id, family_id, user_id, token_hash, predecessor_id, issued_at, expires_at, user_agent, ip)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func tokenArgs(t repository.RefreshToken) []any {
	return []any{t.ID, t.FamilyID, t.UserID, t.TokenHash, t.PredecessorID, t.IssuedAt, t.ExpiresAt, t.UserAgent, t.IP}
}

func (r *tokenRepo) Create(ctx context.Context, t repository.RefreshToken) error {
	if _, err := r.pool.Exec(ctx, insertToken, tokenArgs(t)...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanToken(r.pool.QueryRow(ctx, q, tokenHash))
}

func (r *tokenRepo) GetByID(ctx context.Context, id string) (*repository.RefreshToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE id = $1`
	return scanToken(r.pool.QueryRow(ctx, q, id))
}

// Rotate: el UPDATE condicional es el compare-and-swap. Cero filas afectadas
// significa que otro request ganó (o la familia fue revocada).
func (r *tokenRepo) Rotate(ctx context.Context, oldID string, next repository.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const cas = `UPDATE refresh_tokens SET rotated_at = now() WHERE id = $1 AND rotated_at IS NULL AND NOT revoked`
	tag, err := tx.Exec(ctx, cas, oldID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrTokenNotActive
	}
	if _, err := tx.Exec(ctx, insertToken, tokenArgs(next)...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *tokenRepo) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	const q = `UPDATE refresh_tokens SET revoked = true, revoked_at = now() WHERE family_id = $1 AND NOT revoked`
	tag, err := r.pool.Exec(ctx, q, familyID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	const q = `UPDATE refresh_tokens SET revoked = true, revoked_at = now() WHERE user_id = $1 AND NOT revoked`
	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]repository.RefreshToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM refresh_tokens
WHERE user_id = $1 AND rotated_at IS NULL AND NOT revoked AND expires_at > $2
ORDER BY issued_at DESC`
	rows, err := r.pool.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.RefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
