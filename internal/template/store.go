package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"go.uber.org/zap"
)

// Repository is the persistence port for templates. Templates are created and
// updated by an administrative path; the store only reads them.
type Repository interface {
	FindActive(ctx context.Context, name, language string) (*domain.Template, error)
	ListActive(ctx context.Context, language string) ([]domain.Template, error)
}

// Cache is an optional read-through cache in front of the repository.
// Implementations log their own failures; a miss and an error look the same
// to the store.
type Cache interface {
	Get(ctx context.Context, name, language string) (*domain.Template, bool)
	Set(ctx context.Context, tpl *domain.Template)
}

// Store resolves active templates by (name, language) with a deterministic
// fallback to the configured default language.
type Store struct {
	repo            Repository
	cache           Cache
	defaultLanguage string
	logger          *zap.Logger
}

func NewStore(repo Repository, cache Cache, defaultLanguage string, logger *zap.Logger) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	defaultLanguage = normalizeLanguage(defaultLanguage)
	if defaultLanguage == "" {
		return nil, fmt.Errorf("default language is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		repo:            repo,
		cache:           cache,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}, nil
}

// Resolve returns the single active template for (name, language). When the
// requested language has no active template, the configured default language
// is tried once; any other miss is ErrNotFound.
func (s *Store) Resolve(ctx context.Context, name, language string) (*domain.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", domain.ErrValidation)
	}

	language = normalizeLanguage(language)
	if language == "" {
		language = s.defaultLanguage
	}

	tpl, err := s.lookup(ctx, name, language)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || language == s.defaultLanguage {
		return nil, err
	}

	s.logger.Debug("template missing in requested language, falling back to default",
		zap.String("template", name),
		zap.String("language", language),
		zap.String("defaultLanguage", s.defaultLanguage),
	)
	return s.lookup(ctx, name, s.defaultLanguage)
}

// ListActive returns the active templates, optionally scoped to one language.
func (s *Store) ListActive(ctx context.Context, language string) ([]domain.Template, error) {
	return s.repo.ListActive(ctx, normalizeLanguage(language))
}

func (s *Store) lookup(ctx context.Context, name, language string) (*domain.Template, error) {
	if s.cache != nil {
		if tpl, ok := s.cache.Get(ctx, name, language); ok {
			return tpl, nil
		}
	}

	tpl, err := s.repo.FindActive(ctx, name, language)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, tpl)
	}
	return tpl, nil
}
