// AngelaMos | 2026
// store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store is the object store used for profile and cover images.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
	Ping(ctx context.Context) error
}

// NewKey returns a fresh key of the form <kind>/<user_id>/<ulid>.jpg so a
// replaced image never reuses the previous object's URL.
func NewKey(kind, userID string) string {
	return path.Join(kind, userID, ulid.Make().String()+".jpg")
}

// LocalStore keeps objects on the local filesystem under root and serves
// them below baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// resolve maps a key to a path inside root. Keys must already be in
// canonical form, so ".." segments and doubled slashes are rejected.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || clean[1:] != strings.TrimPrefix(key, "/") ||
		strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return full, nil
}

func (s *LocalStore) Put(
	ctx context.Context,
	key, _ string,
	body io.Reader,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write object: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}

	//nolint:gosec // G302: media is served publicly
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod object: %w", err)
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}

	return nil
}

// Delete treats a missing object as already deleted.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func (s *LocalStore) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL reverses PublicURL. It reports false for URLs this store did
// not produce, such as images hosted elsewhere.
func (s *LocalStore) KeyFromURL(rawURL string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if _, err := s.resolve(key); err != nil {
		return "", false
	}

	return key, true
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s: %w", s.root, core.ErrInvalidInput)
	}

	return nil
}

// Handler serves stored objects. Directory listings are not exposed.
func (s *LocalStore) Handler() http.Handler {
	files := http.FileServer(noDirFS{http.Dir(s.root)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close() //nolint:errcheck // directories are hidden
		return nil, fs.ErrNotExist
	}

	return f, nil
}
