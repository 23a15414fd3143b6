package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jellydator/ttlcache/v3"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	allCategoriesKey      = "all"
	maxCategoryNameLength = 100
)

// CategoryService serves the category list from a short lived in-process cache.
type CategoryService struct {
	repo  repository.CategoryRepository
	cache *ttlcache.Cache[string, []domain.Category]
}

// NewCategoryService builds the service.
func NewCategoryService(repo repository.CategoryRepository, ttl time.Duration) *CategoryService {
	return &CategoryService{
		repo:  repo,
		cache: ttlcache.New(ttlcache.WithTTL[string, []domain.Category](ttl)),
	}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	if item := s.cache.Get(allCategoriesKey); item != nil {
		return item.Value(), nil
	}
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.cache.Set(allCategoriesKey, categories, ttlcache.DefaultTTL)
	return categories, nil
}

// Get returns a category or NotFound.
func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	if item := s.cache.Get(allCategoriesKey); item != nil {
		for _, c := range item.Value() {
			if c.ID == id {
				category := c
				return &category, nil
			}
		}
	}
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || repository.IsInvalidInput(err) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// Create adds a category. Administrators only.
func (s *CategoryService) Create(ctx context.Context, actor *domain.User, name string) (*domain.Category, error) {
	if !actor.Superuser() {
		return nil, apperrors.NewForbidden("Only admins can manage categories.")
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCategoryNameLength {
		return nil, apperrors.NewValidationError("category name must be 1-100 characters", map[string]any{"field": "name"})
	}

	category := &domain.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewValidationError("category already exists", map[string]any{"field": "name"})
		}
		return nil, apperrors.MapError(err)
	}
	s.cache.Delete(allCategoriesKey)
	return category, nil
}
