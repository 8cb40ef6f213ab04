package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
)

type accountRepo struct{ pool *pgxpool.Pool }

const accountColumns = `id::text, user_id::text, provider, provider_subject_id, provider_email,
	provider_name, provider_avatar_url, created_at`

func scanAccount(row pgx.Row) (*repository.LinkedAccount, error) {
	var la repository.LinkedAccount
	err := row.Scan(&la.ID, &la.UserID, &la.Provider, &la.Subject, &la.ProviderEmail,
		&la.ProviderDisplayName, &la.ProviderAvatarURL, &la.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &la, nil
}

func (r *accountRepo) FindLink(ctx context.Context, provider, subject string) (*repository.LinkedAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM linked_accounts WHERE provider = $1 AND provider_subject_id = $2`
	return scanAccount(r.pool.QueryRow(ctx, q, provider, subject))
}

func (r *accountRepo) ListByUser(ctx context.Context, userID string) ([]repository.LinkedAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM linked_accounts WHERE user_id = $1 ORDER BY created_at, provider`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.LinkedAccount, 0, 2)
	for rows.Next() {
		la, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *la)
	}
	return out, rows.Err()
}

func (r *accountRepo) CreateUserWithLink(ctx context.Context, u repository.User, l repository.LinkedAccount) (*repository.User, *repository.LinkedAccount, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	l.UserID = u.ID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	const qUser = `
INSERT INTO users (id, email, display_name, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, qUser, u.ID, u.Email, u.DisplayName, u.AvatarURL).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, repository.ErrConflict
		}
		return nil, nil, err
	}

	if err := insertLink(ctx, tx, &l); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &u, &l, nil
}

func insertLink(ctx context.Context, q pgx.Tx, l *repository.LinkedAccount) error {
	const stmt = `
INSERT INTO linked_accounts (id, user_id, provider, provider_subject_id, provider_email,
	provider_name, provider_avatar_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
RETURNING created_at`
	err := q.QueryRow(ctx, stmt, l.ID, l.UserID, l.Provider, l.Subject, l.ProviderEmail,
		l.ProviderDisplayName, l.ProviderAvatarURL).Scan(&l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *accountRepo) Link(ctx context.Context, l repository.LinkedAccount) (*repository.LinkedAccount, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, l.UserID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	if err := insertLink(ctx, tx, &l); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *accountRepo) UpdateProviderProfile(ctx context.Context, linkID, displayName, avatarURL string) error {
	const q = `UPDATE linked_accounts SET provider_name = $2, provider_avatar_url = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, linkID, displayName, avatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Unlink bloquea las filas del usuario (FOR UPDATE) antes de contar, así dos
// unlinks concurrentes no pueden dejar al usuario sin métodos.
func (r *accountRepo) Unlink(ctx context.Context, userID, provider string) (*repository.LinkedAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const qLock = `SELECT ` + accountColumns + ` FROM linked_accounts WHERE user_id = $1 FOR UPDATE`
	rows, err := tx.Query(ctx, qLock, userID)
	if err != nil {
		return nil, err
	}
	var (
		target *repository.LinkedAccount
		count  int
	)
	for rows.Next() {
		la, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		count++
		if la.Provider == provider {
			target = la
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if target == nil {
		return nil, repository.ErrNotFound
	}
	if count <= 1 {
		return nil, repository.ErrLastIdentity
	}
	if _, err := tx.Exec(ctx, `DELETE FROM linked_accounts WHERE id = $1`, target.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return target, nil
}
