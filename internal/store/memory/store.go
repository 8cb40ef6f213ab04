// Package memory implementa los repositorios en memoria. Se usa en modo dev
// y en tests; respeta el mismo contrato de atomicidad que el driver pg.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
)

// Store guarda usuarios, links y refresh tokens detrás de un único mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*repository.User
	accounts map[string]*repository.LinkedAccount // by id
	tokens   map[string]*repository.RefreshToken  // by id
	byHash   map[string]string                    // token hash -> id
	now      func() time.Time
	lastUser time.Time // CreatedAt estrictamente creciente entre usuarios
}

type (
	userRepo    struct{ *Store }
	accountRepo struct{ *Store }
	tokenRepo   struct{ *Store }
)

var (
	_ repository.UserRepository    = userRepo{}
	_ repository.AccountRepository = accountRepo{}
	_ repository.TokenRepository   = tokenRepo{}
)

func New() *Store {
	return &Store{
		users:    make(map[string]*repository.User),
		accounts: make(map[string]*repository.LinkedAccount),
		tokens:   make(map[string]*repository.RefreshToken),
		byHash:   make(map[string]string),
		now:      time.Now,
	}
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Accounts() repository.AccountRepository { return accountRepo{s} }
func (s *Store) Tokens() repository.TokenRepository     { return tokenRepo{s} }

// ─── Users ───

func (s userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.userByEmailLocked(email); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

// userByEmailLocked devuelve el usuario más antiguo con ese email, igual que
// el ORDER BY del driver pg.
func (s *Store) userByEmailLocked(email string) *repository.User {
	email = strings.ToLower(strings.TrimSpace(email))
	var best *repository.User
	for _, u := range s.users {
		if strings.ToLower(u.Email) != email {
			continue
		}
		if best == nil || u.CreatedAt.Before(best.CreatedAt) ||
			(u.CreatedAt.Equal(best.CreatedAt) && u.ID < best.ID) {
			best = u
		}
	}
	return best
}

func (s userRepo) Update(_ context.Context, id string, p repository.ProfileUpdate) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	u.UpdatedAt = s.now().UTC()
	cp := *u
	return &cp, nil
}

// Delete replica el ON DELETE CASCADE del schema pg.
func (s userRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	for lid, la := range s.accounts {
		if la.UserID == id {
			delete(s.accounts, lid)
		}
	}
	for tid, t := range s.tokens {
		if t.UserID == id {
			delete(s.byHash, t.TokenHash)
			delete(s.tokens, tid)
		}
	}
	return nil
}

// ─── Linked accounts ───

func (s accountRepo) FindLink(_ context.Context, provider, subject string) (*repository.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if la := s.linkLocked(provider, subject); la != nil {
		cp := *la
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) linkLocked(provider, subject string) *repository.LinkedAccount {
	for _, la := range s.accounts {
		if la.Provider == provider && la.Subject == subject {
			return la
		}
	}
	return nil
}

func (s accountRepo) ListByUser(_ context.Context, userID string) ([]repository.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByUserLocked(userID), nil
}

func (s *Store) listByUserLocked(userID string) []repository.LinkedAccount {
	out := make([]repository.LinkedAccount, 0, 2)
	for _, la := range s.accounts {
		if la.UserID == userID {
			out = append(out, *la)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Provider < out[j].Provider
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s accountRepo) CreateUserWithLink(_ context.Context, u repository.User, l repository.LinkedAccount) (*repository.User, *repository.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.linkLocked(l.Provider, l.Subject) != nil {
		return nil, nil, repository.ErrConflict
	}
	now := s.now().UTC()
	if !now.After(s.lastUser) {
		now = s.lastUser.Add(time.Nanosecond)
	}
	s.lastUser = now
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.UserID = u.ID
	l.CreatedAt = now

	su, sl := u, l
	s.users[u.ID] = &su
	s.accounts[l.ID] = &sl
	return &u, &l, nil
}

func (s accountRepo) Link(_ context.Context, l repository.LinkedAccount) (*repository.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[l.UserID]; !ok {
		return nil, repository.ErrNotFound
	}
	if s.linkLocked(l.Provider, l.Subject) != nil {
		return nil, repository.ErrConflict
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = s.now().UTC()
	sl := l
	s.accounts[l.ID] = &sl
	return &l, nil
}

func (s accountRepo) UpdateProviderProfile(_ context.Context, linkID, displayName, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	la, ok := s.accounts[linkID]
	if !ok {
		return repository.ErrNotFound
	}
	la.ProviderDisplayName, la.ProviderAvatarURL = displayName, avatarURL
	return nil
}

func (s accountRepo) Unlink(_ context.Context, userID, provider string) (*repository.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	links := s.listByUserLocked(userID)
	var target *repository.LinkedAccount
	for i := range links {
		if links[i].Provider == provider {
			target = &links[i]
			break
		}
	}
	if target == nil {
		return nil, repository.ErrNotFound
	}
	if len(links) <= 1 {
		return nil, repository.ErrLastIdentity
	}
	delete(s.accounts, target.ID)
	return target, nil
}

// ─── Refresh tokens ───

func (s tokenRepo) Create(_ context.Context, t repository.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTokenLocked(t)
}

func (s *Store) insertTokenLocked(t repository.RefreshToken) error {
	if _, dup := s.byHash[t.TokenHash]; dup {
		return repository.ErrConflict
	}
	if _, dup := s.tokens[t.ID]; dup {
		return repository.ErrConflict
	}
	st := t
	s.tokens[t.ID] = &st
	s.byHash[t.TokenHash] = t.ID
	return nil
}

func (s tokenRepo) GetByHash(_ context.Context, tokenHash string) (*repository.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.tokens[id]
	return &cp, nil
}

func (s tokenRepo) GetByID(_ context.Context, id string) (*repository.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s tokenRepo) Rotate(_ context.Context, oldID string, next repository.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldID]
	if !ok {
		return repository.ErrNotFound
	}
	if old.State() != repository.TokenActive {
		return repository.ErrTokenNotActive
	}
	if err := s.insertTokenLocked(next); err != nil {
		return err
	}
	now := s.now().UTC()
	old.RotatedAt = &now
	return nil
}

func (s tokenRepo) RevokeFamily(_ context.Context, familyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.FamilyID == familyID && !t.Revoked {
			s.revokeLocked(t)
			n++
		}
	}
	return n, nil
}

func (s tokenRepo) RevokeAllByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && !t.Revoked {
			s.revokeLocked(t)
			n++
		}
	}
	return n, nil
}

func (s *Store) revokeLocked(t *repository.RefreshToken) {
	now := s.now().UTC()
	t.Revoked = true
	t.RevokedAt = &now
}

func (s tokenRepo) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]repository.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []repository.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID && t.State() == repository.TokenActive && t.ExpiresAt.After(now) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}
