// Package pg implementa los repositorios sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// Store agrupa el pool y expone un repositorio por agregado.
type Store struct{ pool *pgxpool.Pool }

// Config ajusta el pool. MaxConns <= 0 usa el default de pgxpool.
type Config struct {
	DSN      string
	MaxConns int32
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	// El arranque no falla si la DB todavía no responde; /readyz lo reporta.
	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

// NewFromPool envuelve un pool existente.
func NewFromPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Pool expone el pool interno (migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{pool: s.pool} }
func (s *Store) Accounts() repository.AccountRepository { return &accountRepo{pool: s.pool} }
func (s *Store) Tokens() repository.TokenRepository     { return &tokenRepo{pool: s.pool} }

// Migrate ejecuta los archivos *_up.sql (o *_down.sql en orden inverso) de dir.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS, dir string, down bool) ([]string, error) {
	suffix := "_up.sql"
	if down {
		suffix = "_down.sql"
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if down {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	for _, f := range files {
		b, err := fs.ReadFile(fsys, path.Join(dir, f))
		if err != nil {
			return nil, err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return nil, fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return files, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
