// AngelaMos | 2026
// service_test.go

package profile

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/storage"
)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func newMemRepo(seed ...Profile) *memRepo {
	m := &memRepo{profiles: map[string]*Profile{}}
	for i := range seed {
		p := seed[i]
		m.profiles[p.ID] = &p
	}
	return m
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetByUsername(_ context.Context, username string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UsernameValue() == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) EnsureExists(ctx context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	if _, ok := m.profiles[id]; !ok {
		m.profiles[id] = &Profile{ID: id, UserEmail: id + "@example.com"}
	}
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *memRepo) UsernameTaken(_ context.Context, username, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.ID != excludeID && p.UsernameValue() == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) SaveDetails(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UsernameLocked = true
	p.FullNameLocked = true
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memRepo) SetImageURL(_ context.Context, id, kind, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return "", core.ErrNotFound
	}
	var prev string
	if kind == ImageCover {
		prev, p.CoverPicURL = p.CoverPicURL, url
	} else {
		prev, p.ProfilePicURL = p.ProfilePicURL, url
	}
	return prev, nil
}

func (m *memRepo) SetPublish(_ context.Context, id string, publish bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Publish = publish
	return nil
}

func (m *memRepo) TogglePublish(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return false, core.ErrNotFound
	}
	p.Publish = !p.Publish
	return p.Publish, nil
}

func (m *memRepo) SetLocks(_ context.Context, id string, u, f bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return core.ErrNotFound
	}
	p.UsernameLocked, p.FullNameLocked = u, f
	return nil
}

func (m *memRepo) List(_ context.Context, _ ListParams) ([]Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memRepo) Counts(_ context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c Counts
	for _, p := range m.profiles {
		c.Total++
		if p.Publish {
			c.Published++
		}
	}
	return c, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, key, _ string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) PublicURL(key string) string {
	return "http://media.test/" + key
}

func (s *memStore) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, "http://media.test/") {
		return "", false
	}
	return strings.TrimPrefix(rawURL, "http://media.test/"), true
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

var testImages = config.StorageConfig{
	ProfileMaxDim: 800,
	CoverMaxDim:   1600,
	JPEGQuality:   80,
}

func validRequest(username string) UpdateProfileRequest {
	return UpdateProfileRequest{
		Username:    username,
		FullName:    "Alice Doe",
		Company:     "Acme",
		Role:        "Engineer",
		PhoneNumber: "+919876543210",
		LinkedinURL: "https://www.linkedin.com/in/alice",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Fields
}

func TestUpdateLocksUsernameAndFullName(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemStore(), testImages, nil, nil)
	ctx := context.Background()

	p, err := svc.Update(ctx, "alice-id", validRequest("alice"))
	require.NoError(t, err)
	assert.True(t, p.UsernameLocked)
	assert.True(t, p.FullNameLocked)

	req := validRequest("alice2")
	req.FullName = "Alice Renamed"
	_, err = svc.Update(ctx, "alice-id", req)

	fields := fieldsOf(t, err)
	assert.Equal(t, msgUsernameLocked, fields["username"])
	assert.Equal(t, msgFullNameLocked, fields["full_name"])

	stored, err := repo.GetByID(ctx, "alice-id")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UsernameValue())
	assert.Equal(t, "Alice Doe", stored.FullName)

	req = validRequest("alice")
	req.Company = "New Co"
	p, err = svc.Update(ctx, "alice-id", req)
	require.NoError(t, err)
	assert.Equal(t, "New Co", p.Company)
}

func TestUpdateRejectsTakenUsername(t *testing.T) {
	taken := "alice"
	repo := newMemRepo(Profile{ID: "alice-id", Username: &taken})
	svc := NewService(repo, newMemStore(), testImages, nil, nil)

	_, err := svc.Update(context.Background(), "bob-id", validRequest("alice"))
	assert.Equal(t, msgUsernameTaken, fieldsOf(t, err)["username"])
}

func TestAdminUnlockAllowsRename(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemStore(), testImages, nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, "carl-id", validRequest("carl"))
	require.NoError(t, err)

	p, err := svc.SetLocks(ctx, "carl-id", false, false)
	require.NoError(t, err)
	assert.False(t, p.UsernameLocked)

	p, err = svc.Update(ctx, "carl-id", validRequest("carlos"))
	require.NoError(t, err)
	assert.Equal(t, "carlos", p.UsernameValue())
	assert.True(t, p.UsernameLocked)
}

func TestUsernameAvailable(t *testing.T) {
	taken := "alice"
	svc := NewService(newMemRepo(Profile{ID: "alice-id", Username: &taken}), newMemStore(), testImages, nil, nil)
	ctx := context.Background()

	ok, _, err := svc.UsernameAvailable(ctx, "bob-id", "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, reason, err := svc.UsernameAvailable(ctx, "bob-id", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, msgUsernameTaken, reason)

	ok, _, err = svc.UsernameAvailable(ctx, "alice-id", "alice")
	require.NoError(t, err)
	assert.True(t, ok, "own username is available to its owner")

	ok, _, err = svc.UsernameAvailable(ctx, "bob-id", "has space")
	require.NoError(t, err)
	assert.False(t, ok)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestUploadImageReplacesPreviousObject(t *testing.T) {
	repo := newMemRepo()
	store := newMemStore()
	svc := NewService(repo, store, testImages, nil, nil)
	ctx := context.Background()

	first, err := svc.UploadImage(ctx, "dana-id", ImageProfile, bytes.NewReader(pngBytes(t, 1200, 900)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "http://media.test/profile/dana-id/"))
	require.Len(t, store.keys(), 1)

	second, err := svc.UploadImage(ctx, "dana-id", ImageProfile, bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "http://media.test/"+keys[0], second)

	p, err := repo.GetByID(ctx, "dana-id")
	require.NoError(t, err)
	assert.Equal(t, second, p.ProfilePicURL)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	store := newMemStore()
	svc := NewService(newMemRepo(), store, testImages, nil, nil)

	_, err := svc.UploadImage(context.Background(), "eve-id", ImageCover, strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImage)
	assert.Empty(t, store.keys())
}

func TestUploadImageUnknownKind(t *testing.T) {
	svc := NewService(newMemRepo(), newMemStore(), testImages, nil, nil)

	_, err := svc.UploadImage(context.Background(), "eve-id", "avatar", strings.NewReader(""))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestTogglePublish(t *testing.T) {
	svc := NewService(newMemRepo(Profile{ID: "f"}), newMemStore(), testImages, nil, nil)
	ctx := context.Background()

	on, err := svc.TogglePublish(ctx, "f")
	require.NoError(t, err)
	assert.True(t, on)

	off, err := svc.TogglePublish(ctx, "f")
	require.NoError(t, err)
	assert.False(t, off)

	_, err = svc.TogglePublish(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
