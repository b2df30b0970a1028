// AngelaMos | 2026
// service_test.go

package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
	"github.com/tapinfi/cardhub/internal/profile"
)

type memRepo struct {
	mu       sync.Mutex
	accounts map[string]string
	members  map[string]*Member
	saved    map[string]map[string]time.Time
}

func newMemRepo(accounts map[string]string) *memRepo {
	return &memRepo{
		accounts: accounts,
		members:  map[string]*Member{},
		saved:    map[string]map[string]time.Time{},
	}
}

func (m *memRepo) EnsureMember(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.accounts[userID]
	if !ok {
		return false, nil
	}
	if _, exists := m.members[userID]; exists {
		return false, nil
	}
	m.members[userID] = &Member{
		UserID:      userID,
		Email:       email,
		IsCardOwner: len(m.saved[userID]) > 0,
		JoinedAt:    time.Now(),
	}
	return true, nil
}

func (m *memRepo) GetMember(_ context.Context, userID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memRepo) IsMember(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[userID]
	return ok, nil
}

func (m *memRepo) SaveCard(_ context.Context, userID, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved[userID] == nil {
		m.saved[userID] = map[string]time.Time{}
	}
	if _, ok := m.saved[userID][username]; ok {
		return false, nil
	}
	m.saved[userID][username] = time.Now()
	return true, nil
}

func (m *memRepo) RemoveCard(_ context.Context, userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saved[userID][username]; !ok {
		return core.ErrNotFound
	}
	delete(m.saved[userID], username)
	return nil
}

func (m *memRepo) TouchCard(_ context.Context, userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saved[userID][username]; !ok {
		return core.ErrNotFound
	}
	return nil
}

func (m *memRepo) ListCards(_ context.Context, userID string, _ ListParams) ([]SavedCard, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []SavedCard{}
	for username, at := range m.saved[userID] {
		out = append(out, SavedCard{Username: username, SavedAt: at})
	}
	return out, len(out), nil
}

func (m *memRepo) Counts(context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Counts{Members: len(m.members)}
	for _, cards := range m.saved {
		c.SavedCards += len(cards)
	}
	return c, nil
}

func (m *memRepo) rows(userID, username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saved[userID][username]; ok {
		return 1
	}
	return 0
}

type memCards map[string]*profile.Profile

func (c memCards) GetByUsername(_ context.Context, username string) (*profile.Profile, error) {
	p, ok := c[username]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func card(username string, publish bool) *profile.Profile {
	return &profile.Profile{ID: username + "-id", Username: &username, Publish: publish}
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo(map[string]string{
		"bob-id":   "bob@example.com",
		"alice-id": "alice@example.com",
	})
	cards := memCards{
		"alice": card("alice", true),
		"carol": card("carol", false),
	}
	return NewService(repo, cards, 5, nil, nil), repo
}

var bob = &middleware.Session{UserID: "bob-id", Role: middleware.RoleUser}

func TestSaveRequiresSignIn(t *testing.T) {
	svc, _ := newTestService()

	res, err := svc.Save(context.Background(), nil, "alice")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsAuth, res.Outcome)
	assert.Equal(t, "/?redirectTo=/profile/alice", res.RedirectTo)
}

func TestSaveMembershipThenIdempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	res, err := svc.Save(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsMembership, res.Outcome)
	assert.Equal(t, "/wallet/join?redirectTo=/profile/alice", res.RedirectTo)
	assert.Zero(t, repo.rows("bob-id", "alice"))

	_, created, err := svc.EnsureMembership(ctx, "bob-id")
	require.NoError(t, err)
	assert.True(t, created)

	res, err = svc.Save(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, res.Outcome)
	assert.Empty(t, res.RedirectTo)
	assert.Equal(t, 1, repo.rows("bob-id", "alice"))

	res, err = svc.Save(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySaved, res.Outcome)
	assert.Equal(t, 1, repo.rows("bob-id", "alice"))
}

func TestSaveRejectsMissingOrUnpublishedCard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _, err := svc.EnsureMembership(ctx, "bob-id")
	require.NoError(t, err)

	_, err = svc.Save(ctx, bob, "carol")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Save(ctx, bob, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEnsureMembershipIsStable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, created, err := svc.EnsureMembership(ctx, "alice-id")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice@example.com", first.Email)

	second, created, err := svc.EnsureMembership(ctx, "alice-id")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.JoinedAt, second.JoinedAt)

	_, _, err = svc.EnsureMembership(ctx, "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListUsesConfiguredPageSize(t *testing.T) {
	svc, _ := newTestService()

	_, _, params, err := svc.List(context.Background(), "bob-id", ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 5, params.PageSize)
}

func TestProfilePathEscapes(t *testing.T) {
	assert.Equal(t, "/profile/alice", ProfilePath("alice"))
	assert.Equal(t, "/profile/a%2Fb", ProfilePath("a/b"))
}
