package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/store/memory"
)

var (
	keyOnce sync.Once
	testKey *jwt.KeyPair
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	issuer *jwt.Issuer
	user   *repository.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keyOnce.Do(func() {
		kp, err := jwt.GenerateRSA(0)
		require.NoError(t, err)
		testKey = kp
	})
	st := memory.New()
	u, _, err := st.Accounts().CreateUserWithLink(context.Background(),
		repository.User{Email: "a@example.com", DisplayName: "Ana"},
		repository.LinkedAccount{Provider: "google", Subject: "g-1"})
	require.NoError(t, err)

	iss := jwt.NewIssuer("https://id.example.com", "app", jwt.NewKeystore(testKey))
	svc := NewService(Deps{Tokens: st.Tokens(), Users: st.Users(), Issuer: iss, RefreshTTL: time.Hour})
	return &fixture{svc: svc, store: st, issuer: iss, user: u}
}

func (f *fixture) issue(t *testing.T) *Pair {
	t.Helper()
	p, err := f.svc.Issue(context.Background(), IssueInput{User: f.user, Client: Client{UserAgent: "test", IP: "127.0.0.1"}})
	require.NoError(t, err)
	return p
}

func TestIssue(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Issue(context.Background(), IssueInput{
		User:    f.user,
		IDToken: &jwt.IDTokenInput{Provider: "github", ProviderSub: "42", Email: "a@example.com", EmailVerified: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", p.TokenType)
	assert.Equal(t, int64(900), p.ExpiresIn)
	assert.Len(t, p.RefreshToken, 43)

	claims, err := f.issuer.ParseAccess(p.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.Subject)
	assert.Equal(t, p.SessionID, claims.SessionID)

	id, err := f.issuer.VerifyIDToken(p.IDToken, "app")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, id["sub"])
	assert.Equal(t, "github", id["provider"])

	rec, err := f.store.Tokens().GetByHash(context.Background(), Hash(p.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, repository.TokenActive, rec.State())
	assert.Nil(t, rec.PredecessorID)
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.issue(t)

	r2, err := f.svc.Refresh(ctx, r1.RefreshToken, Client{})
	require.NoError(t, err)
	assert.NotEqual(t, r1.RefreshToken, r2.RefreshToken)
	assert.Equal(t, r1.SessionID, r2.SessionID)
	assert.Empty(t, r2.IDToken)

	_, err = f.svc.Refresh(ctx, r1.RefreshToken, Client{})
	assert.ErrorIs(t, err, ErrReuseDetected)

	_, err = f.svc.Refresh(ctx, r2.RefreshToken, Client{})
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestRefresh_ChainIntegrity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 5
	tokens := []string{f.issue(t).RefreshToken}
	for i := 0; i < n; i++ {
		p, err := f.svc.Refresh(ctx, tokens[len(tokens)-1], Client{})
		require.NoError(t, err)
		tokens = append(tokens, p.RefreshToken)
	}

	// el tercero de la cadena es viejo
	_, err := f.svc.Refresh(ctx, tokens[2], Client{})
	require.ErrorIs(t, err, ErrReuseDetected)

	for i, raw := range tokens {
		rec, err := f.store.Tokens().GetByHash(ctx, Hash(raw))
		require.NoError(t, err)
		assert.Equal(t, repository.TokenRevoked, rec.State(), "token %d", i)
		if i > 0 {
			require.NotNil(t, rec.PredecessorID)
		}
	}
}

func TestRefresh_Concurrent(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		reuse   int
		failed  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Refresh(context.Background(), p.RefreshToken, Client{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrReuseDetected):
				reuse++
			case errors.Is(err, ErrRevoked):
				// llegó después de que otro perdedor revocara la familia
				failed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assert.GreaterOrEqual(t, reuse, 1)
	assert.Equal(t, workers-1, reuse+failed)
}

func TestRefresh_ExpiredAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.issue(t)

	f.svc.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err := f.svc.Refresh(ctx, p.RefreshToken, Client{})
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.svc.Refresh(ctx, "nope", Client{})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.svc.Refresh(ctx, "", Client{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRevokeSessionAndAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.issue(t)
	b := f.issue(t)

	rec, err := f.svc.RevokeSession(ctx, a.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, rec)
	_, err = f.svc.Refresh(ctx, a.RefreshToken, Client{})
	assert.ErrorIs(t, err, ErrRevoked)

	// logout repetido o con token desconocido no falla
	_, err = f.svc.RevokeSession(ctx, a.RefreshToken)
	require.NoError(t, err)
	rec, err = f.svc.RevokeSession(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)

	n, err := f.svc.RevokeAll(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.Refresh(ctx, b.RefreshToken, Client{})
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestSessionsAndRevokeByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.issue(t)
	f.issue(t)

	sessions, err := f.svc.Sessions(ctx, f.user.ID, a.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	var current *Session
	for i := range sessions {
		if sessions[i].Current {
			current = &sessions[i]
		}
	}
	require.NotNil(t, current)
	assert.Equal(t, "test", current.UserAgent)

	assert.ErrorIs(t, f.svc.RevokeByID(ctx, "someone-else", current.ID), ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.RevokeByID(ctx, f.user.ID, "missing"), ErrSessionNotFound)
	require.NoError(t, f.svc.RevokeByID(ctx, f.user.ID, current.ID))

	sessions, err = f.svc.Sessions(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

// uuidColumnTokens rechaza ids que no son UUID como lo hace una columna uuid de postgres.
type uuidColumnTokens struct {
	repository.TokenRepository
}

func (u uuidColumnTokens) GetByID(ctx context.Context, id string) (*repository.RefreshToken, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New("invalid input syntax for type uuid")
	}
	return u.TokenRepository.GetByID(ctx, id)
}

func TestRevokeByID_MalformedIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.tokens = uuidColumnTokens{f.store.Tokens()}
	p := f.issue(t)

	for _, id := range []string{"abc", "1", "not-a-uuid"} {
		assert.ErrorIs(t, f.svc.RevokeByID(ctx, f.user.ID, id), ErrSessionNotFound, id)
	}

	sessions, err := f.svc.Sessions(ctx, f.user.ID, p.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.ErrorIs(t, f.svc.RevokeByID(ctx, f.user.ID, uuid.NewString()), ErrSessionNotFound)
	require.NoError(t, f.svc.RevokeByID(ctx, f.user.ID, sessions[0].ID))
}

func TestHashAndOpaque(t *testing.T) {
	a, err := NewOpaque()
	require.NoError(t, err)
	b, err := NewOpaque()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, Hash(a), 64)
	assert.Equal(t, Hash(a), Hash(a))
}
