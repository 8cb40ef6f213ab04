package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id::text, email, display_name, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY created_at, id LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

// Update: COALESCE deja intactos los campos que no vienen en el cambio.
func (r *userRepo) Update(ctx context.Context, id string, p repository.ProfileUpdate) (*repository.User, error) {
	const q = `
UPDATE users SET
	display_name = COALESCE($2, display_name),
	avatar_url   = COALESCE($3, avatar_url),
	updated_at   = now()
WHERE id = $1
RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, p.DisplayName, p.AvatarURL))
}

// Delete: links y refresh tokens caen por ON DELETE CASCADE.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
