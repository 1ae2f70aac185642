package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// TagService manages recipe tags
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// List returns every tag ordered by name
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, translateError(err, "tag")
	}
	return &tag, nil
}

// Create adds a tag. Slugs are unique.
func (s *TagService) Create(ctx context.Context, req *types.TagCreateRequest) (*models.Tag, error) {
	verr := &ValidationError{}
	if !models.ValidColor(req.Color) {
		verr.Add("color", "Color must be a hex value like #RGB or #RRGGBB.")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).Where("slug = ?", req.Slug).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		verr.Add("slug", "A tag with that slug already exists.")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: req.Name, Slug: req.Slug, Color: req.Color}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("slug", "A tag with that slug already exists.")
		}
		return nil, translateError(err, "tag")
	}
	return &tag, nil
}
