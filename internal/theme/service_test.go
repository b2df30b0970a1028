// AngelaMos | 2026
// service_test.go

package theme

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/core"
)

type assignment struct {
	applied    bool
	assignedAt time.Time
}

type memRepo struct {
	mu          sync.Mutex
	available   map[string]Theme
	assignments map[string]map[string]*assignment
	users       map[string]bool
	failApplied error
}

func newMemRepo(users ...string) *memRepo {
	m := &memRepo{
		available:   map[string]Theme{},
		assignments: map[string]map[string]*assignment{},
		users:       map[string]bool{},
	}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *memRepo) ListAvailable(context.Context) ([]Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Theme, 0, len(m.available))
	for _, t := range m.available {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetAvailable(_ context.Context, id string) (*Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.available[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (m *memRepo) CreateAvailable(_ context.Context, t *Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.available[t.ID]; ok {
		return core.ErrDuplicateKey
	}
	t.CreatedAt = time.Now()
	m.available[t.ID] = *t
	return nil
}

func (m *memRepo) DeleteAvailable(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.available[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.available, id)
	for _, a := range m.assignments {
		delete(a, id)
	}
	return nil
}

func (m *memRepo) CountAvailable(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.available), nil
}

func (m *memRepo) ListForUser(_ context.Context, userID string) ([]AssignedTheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AssignedTheme
	for id, a := range m.assignments[userID] {
		out = append(out, AssignedTheme{
			Theme:      m.available[id],
			Applied:    a.applied,
			AssignedAt: a.assignedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Assign(_ context.Context, userID, themeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.available[themeID]; !ok || !m.users[userID] {
		return false, core.ErrNotFound
	}
	if m.assignments[userID] == nil {
		m.assignments[userID] = map[string]*assignment{}
	}
	if _, ok := m.assignments[userID][themeID]; ok {
		return false, nil
	}
	m.assignments[userID][themeID] = &assignment{assignedAt: time.Now()}
	return true, nil
}

func (m *memRepo) Unassign(_ context.Context, userID, themeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[userID][themeID]; !ok {
		return core.ErrNotFound
	}
	delete(m.assignments[userID], themeID)
	return nil
}

func (m *memRepo) Apply(_ context.Context, userID, themeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.assignments[userID][themeID]
	if !ok {
		return false, core.ErrNotFound
	}
	if target.applied {
		return false, nil
	}
	for _, a := range m.assignments[userID] {
		a.applied = false
	}
	target.applied = true
	return true, nil
}

func (m *memRepo) AppliedThemeID(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApplied != nil {
		return "", m.failApplied
	}
	for id, a := range m.assignments[userID] {
		if a.applied {
			return id, nil
		}
	}
	return "", core.ErrNotFound
}

func (m *memRepo) appliedCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.assignments[userID] {
		if a.applied {
			n++
		}
	}
	return n
}

type countingCounter struct {
	prometheus.Counter
	n int
}

func (c *countingCounter) Inc() { c.n++ }

func seededService(t *testing.T, users ...string) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo(users...)
	svc := NewService(repo, nil, nil)
	for _, k := range Kinds() {
		_, err := svc.Create(context.Background(), CreateThemeRequest{ID: string(k), Name: string(k)})
		require.NoError(t, err)
	}
	return svc, repo
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindGreenProfile, ParseKind("GreenProfile"))
	assert.Equal(t, KindNone, ParseKind("greenprofile"))
	assert.Equal(t, KindNone, ParseKind("NeonTheme"))
	assert.Equal(t, KindNone, ParseKind(""))
	assert.True(t, KindEngineerTheme.Known())
	assert.False(t, KindNone.Known())
	assert.False(t, Kind("NeonTheme").Known())
	assert.Equal(t, "none", KindNone.Label())
	assert.Len(t, Kinds(), 6)
}

func TestCreateRejectsThemeWithoutRenderer(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateThemeRequest{ID: "NeonTheme", Name: "Neon"})
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, msgUnknownKind, appErr.Fields["id"])

	_, err = svc.Create(context.Background(), CreateThemeRequest{ID: "BlueTheme", Name: "Blue"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateThemeRequest{ID: "BlueTheme", Name: "Blue again"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestApplyIsIdempotent(t *testing.T) {
	svc, repo := seededService(t, "alice")
	counter := &countingCounter{Counter: prometheus.NewCounter(prometheus.CounterOpts{Name: "x"})}
	svc.applications = counter
	ctx := context.Background()

	for _, id := range []string{"BlueTheme", "GreenProfile"} {
		_, err := svc.Assign(ctx, "alice", id)
		require.NoError(t, err)
	}

	changed, err := svc.Apply(ctx, "alice", "BlueTheme")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Apply(ctx, "alice", "GreenProfile")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Apply(ctx, "alice", "GreenProfile")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, 1, repo.appliedCount("alice"))
	assert.Equal(t, 2, counter.n)

	kind, err := svc.CurrentKind(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, KindGreenProfile, kind)
}

func TestApplyRequiresAssignment(t *testing.T) {
	svc, _ := seededService(t, "alice")

	_, err := svc.Apply(context.Background(), "alice", "BusinessTheme")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCurrentKindFallsBackToNone(t *testing.T) {
	ctx := context.Background()

	t.Run("no assignment", func(t *testing.T) {
		svc, _ := seededService(t, "alice")
		kind, err := svc.CurrentKind(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, KindNone, kind)
	})

	t.Run("applied assignment removed", func(t *testing.T) {
		svc, _ := seededService(t, "alice")
		_, err := svc.Assign(ctx, "alice", "BlueTheme")
		require.NoError(t, err)
		_, err = svc.Apply(ctx, "alice", "BlueTheme")
		require.NoError(t, err)
		require.NoError(t, svc.Unassign(ctx, "alice", "BlueTheme"))

		kind, err := svc.CurrentKind(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, KindNone, kind)
	})

	t.Run("id without renderer", func(t *testing.T) {
		repo := newMemRepo("alice")
		repo.available["LegacyTheme"] = Theme{ID: "LegacyTheme"}
		repo.assignments["alice"] = map[string]*assignment{"LegacyTheme": {applied: true}}

		kind, err := NewService(repo, nil, nil).CurrentKind(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, KindNone, kind)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := newMemRepo("alice")
		repo.failApplied = errors.New("connection reset")

		kind, err := NewService(repo, nil, nil).CurrentKind(ctx, "alice")
		assert.Error(t, err)
		assert.Equal(t, KindNone, kind)
	})
}

func TestDeleteRemovesAssignments(t *testing.T) {
	svc, _ := seededService(t, "alice")
	ctx := context.Background()

	_, err := svc.Assign(ctx, "alice", "EngineerTheme")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "EngineerTheme"))

	themes, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, themes)

	assert.ErrorIs(t, svc.Delete(ctx, "EngineerTheme"), core.ErrNotFound)
}
