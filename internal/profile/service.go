// AngelaMos | 2026
// service.go

package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/storage"
)

const (
	msgUsernameTaken  = "This username is already taken."
	msgUsernameLocked = "Username is locked. Contact an admin to change it."
	msgFullNameLocked = "Full name is locked. Contact an admin to change it."
)

type Service struct {
	repo    Repository
	store   storage.Store
	images  config.StorageConfig
	uploads *prometheus.CounterVec
	logger  *slog.Logger
}

// NewService accepts a nil uploads counter when metrics are not wanted.
func NewService(
	repo Repository,
	store storage.Store,
	images config.StorageConfig,
	uploads *prometheus.CounterVec,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:    repo,
		store:   store,
		images:  images,
		uploads: uploads,
		logger:  logger,
	}
}

// GetMine returns the caller's card, creating the row on first visit.
func (s *Service) GetMine(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.EnsureExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get own profile: %w", err)
	}
	return p, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Update saves the card details. Field problems come back as a validation
// AppError so handlers can show them inline. A locked username or full
// name must be resubmitted unchanged.
func (s *Service) Update(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*Profile, error) {
	p, err := s.repo.EnsureExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	fields := map[string]string{}

	if p.UsernameLocked && p.Username != nil && *p.Username != req.Username {
		fields["username"] = msgUsernameLocked
	}
	if p.FullNameLocked && p.FullName != "" && p.FullName != req.FullName {
		fields["full_name"] = msgFullNameLocked
	}

	if _, blocked := fields["username"]; !blocked {
		taken, err := s.repo.UsernameTaken(ctx, req.Username, userID)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			fields["username"] = msgUsernameTaken
		}
	}

	if len(fields) > 0 {
		return nil, core.ValidationError(fields)
	}

	username := req.Username
	p.Username = &username
	p.FullName = req.FullName
	p.Role = req.Role
	p.Company = req.Company
	p.About = req.About
	p.PhoneNumber = req.PhoneNumber
	p.WebsiteURL = req.WebsiteURL
	p.PortfolioURL = req.PortfolioURL
	p.FacebookURL = req.FacebookURL
	p.InstagramURL = req.InstagramURL
	p.LinkedinURL = req.LinkedinURL
	p.TwitterURL = req.TwitterURL
	p.WhatsappURL = req.WhatsappURL

	if err := s.repo.SaveDetails(ctx, p); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ValidationError(map[string]string{"username": msgUsernameTaken})
		}
		return nil, fmt.Errorf("save profile: %w", err)
	}

	return p, nil
}

// UsernameAvailable reports whether userID could claim username. The
// reason explains a negative answer.
func (s *Service) UsernameAvailable(
	ctx context.Context,
	userID, username string,
) (bool, string, error) {
	if !core.IsValidUsername(username) {
		return false, "must be 3-30 characters of letters, digits, '.', '_' or '-' with no spaces", nil
	}

	taken, err := s.repo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return false, "", err
	}
	if taken {
		return false, msgUsernameTaken, nil
	}

	return true, "", nil
}

// UploadImage compresses the upload, stores it under a fresh key, points
// the profile at it and then removes the object it replaced. Removal of the
// old object is best-effort.
func (s *Service) UploadImage(
	ctx context.Context,
	userID, kind string,
	body io.Reader,
) (string, error) {
	if !IsImageKind(kind) {
		return "", fmt.Errorf("upload image: %w", core.ErrInvalidInput)
	}

	url, err := s.uploadImage(ctx, userID, kind, body)
	s.countUpload(kind, err)
	return url, err
}

func (s *Service) uploadImage(
	ctx context.Context,
	userID, kind string,
	body io.Reader,
) (string, error) {
	maxDim := s.images.ProfileMaxDim
	if kind == ImageCover {
		maxDim = s.images.CoverMaxDim
	}

	data, err := storage.CompressImage(body, storage.CompressOptions{
		MaxDim:  maxDim,
		Quality: s.images.JPEGQuality,
	})
	if err != nil {
		return "", err
	}

	if _, err := s.repo.EnsureExists(ctx, userID); err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}

	key := storage.NewKey(kind, userID)
	if err := s.store.Put(ctx, key, "image/jpeg", bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	url := s.store.PublicURL(key)
	previous, err := s.repo.SetImageURL(ctx, userID, kind, url)
	if err != nil {
		s.deleteObject(ctx, key)
		return "", fmt.Errorf("save image url: %w", err)
	}

	if oldKey, ok := s.store.KeyFromURL(previous); ok && oldKey != key {
		s.deleteObject(ctx, oldKey)
	}

	return url, nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "delete stored image failed",
			"key", key,
			"error", err,
		)
	}
}

func (s *Service) countUpload(kind string, err error) {
	if s.uploads == nil {
		return
	}

	result := "ok"
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	s.uploads.WithLabelValues(kind, result).Inc()
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Profile, int, error) {
	params.Normalize(core.DefaultPageSize)
	return s.repo.List(ctx, params)
}

func (s *Service) SetPublish(ctx context.Context, id string, publish bool) error {
	return s.repo.SetPublish(ctx, id, publish)
}

func (s *Service) TogglePublish(ctx context.Context, id string) (bool, error) {
	return s.repo.TogglePublish(ctx, id)
}

func (s *Service) SetLocks(
	ctx context.Context,
	id string,
	usernameLocked, fullNameLocked bool,
) (*Profile, error) {
	if err := s.repo.SetLocks(ctx, id, usernameLocked, fullNameLocked); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.repo.Counts(ctx)
}
