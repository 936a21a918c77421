package tag

import (
	"context"
	"errors"
	"strings"

	"kosh/internal/logger"
	pkgerrors "kosh/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, req CreateTagRequest) (*Tag, error)
	Update(ctx context.Context, id string, req UpdateTagRequest) (*Tag, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Tag, error)
	List(ctx context.Context) ([]Tag, error)
	ListByType(ctx context.Context, tagType Type) ([]Tag, error)
	Search(ctx context.Context, query string, tagType Type) ([]Tag, error)
	EnsureDefaults(ctx context.Context) error
}

type service struct {
	repo Repository
	log  logger.Logger
}

func NewService(repo Repository, log logger.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Create(ctx context.Context, req CreateTagRequest) (*Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "tag name is required")
	}
	if !req.Type.Valid() {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "unknown tag type").WithDetail("type", string(req.Type))
	}

	t := &Tag{
		Name:  name,
		Type:  req.Type,
		Color: req.Color,
		Icon:  req.Icon,
	}

	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, s.wrapRepoError(err)
	}

	s.log.InfowCtx(ctx, "Tag created", "tag_id", t.ID, "type", t.Type)
	return t, nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateTagRequest) (*Tag, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.ErrValidation.WithDetail("message", "tag name cannot be blank")
		}
		t.Name = name
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	if req.Icon != nil {
		t.Icon = *req.Icon
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, s.wrapRepoError(err)
	}
	return t, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrapRepoError(err)
	}
	s.log.InfowCtx(ctx, "Tag deleted", "tag_id", id)
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Tag, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err)
	}
	return t, nil
}

func (s *service) List(ctx context.Context) ([]Tag, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return tags, nil
}

func (s *service) ListByType(ctx context.Context, tagType Type) ([]Tag, error) {
	if !tagType.Valid() {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "unknown tag type").WithDetail("type", string(tagType))
	}
	tags, err := s.repo.ListByType(ctx, tagType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return tags, nil
}

func (s *service) Search(ctx context.Context, query string, tagType Type) ([]Tag, error) {
	if !tagType.Valid() {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "unknown tag type").WithDetail("type", string(tagType))
	}
	tags, err := s.repo.Search(ctx, query, tagType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return tags, nil
}

// EnsureDefaults seeds the built-in tag set once. Runs on every startup and
// is a no-op when any default tag is already present.
func (s *service) EnsureDefaults(ctx context.Context) error {
	count, err := s.repo.CountDefaults(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if count > 0 {
		return nil
	}

	defaults := DefaultTags()
	if err := s.repo.InsertMany(ctx, defaults); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.log.InfowCtx(ctx, "Seeded default tags", "count", len(defaults))
	return nil
}

func (s *service) wrapRepoError(err error) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}
