package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
)

// SubscriptionService manages follow relations between users
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// AuthorSummary is a followed author with a preview of their recipes
type AuthorSummary struct {
	Author       models.User
	Recipes      []models.Recipe
	RecipesCount int64
}

// Subscribe makes the caller follow authorID
func (s *SubscriptionService) Subscribe(ctx context.Context, caller middleware.Caller, authorID uint) (*models.User, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	var author models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&author, authorID).Error; err != nil {
			return translateError(err, "author")
		}
		if author.ID == caller.UserID {
			return NewValidationError("author", "You cannot subscribe to yourself.")
		}

		var count int64
		if err := tx.Model(&models.Subscription{}).Where("user_id = ? AND author_id = ?", caller.UserID, authorID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("subscription %w", ErrAlreadyExists)
		}

		sub := models.Subscription{UserID: caller.UserID, AuthorID: authorID}
		if err := tx.Omit("User", "Author").Create(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("subscription %w", ErrAlreadyExists)
			}
			return translateError(err, "subscription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RelationToggles.WithLabelValues("subscription", "add").Inc()
	return &author, nil
}

// Unsubscribe removes the caller's follow of authorID
func (s *SubscriptionService) Unsubscribe(ctx context.Context, caller middleware.Caller, authorID uint) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up author: %w", err)
	}
	if count == 0 {
		return notFound("author")
	}

	res := db.Where("user_id = ? AND author_id = ?", caller.UserID, authorID).Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription %w", ErrNotPresent)
	}

	metrics.RelationToggles.WithLabelValues("subscription", "remove").Inc()
	return nil
}

// List returns a page of the authors the caller follows, ordered by username
func (s *SubscriptionService) List(ctx context.Context, caller middleware.Caller, page Pagination) ([]models.User, int64, error) {
	if caller.IsAnonymous() {
		return nil, 0, ErrUnauthenticated
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).
		Where("users.id IN (?)", s.db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", caller.UserID)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	if err := query.Order("users.username ASC").Offset(page.Offset()).Limit(page.Limit).Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return authors, total, nil
}

// Summaries attaches recipe previews and counts to authors. A negative
// recipesLimit means no limit.
func (s *SubscriptionService) Summaries(ctx context.Context, authors []models.User, recipesLimit int) ([]AuthorSummary, error) {
	summaries := make([]AuthorSummary, 0, len(authors))
	if len(authors) == 0 {
		return summaries, nil
	}

	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count author recipes: %w", err)
	}
	byAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byAuthor[c.AuthorID] = c.Total
	}

	for _, author := range authors {
		var recipes []models.Recipe
		query := s.db.WithContext(ctx).
			Where("author_id = ?", author.ID).
			Order("created_at DESC").
			Order("id DESC")
		if recipesLimit >= 0 {
			query = query.Limit(recipesLimit)
		}
		if recipesLimit != 0 {
			if err := query.Find(&recipes).Error; err != nil {
				return nil, fmt.Errorf("failed to load author recipes: %w", err)
			}
		}
		summaries = append(summaries, AuthorSummary{
			Author:       author,
			Recipes:      recipes,
			RecipesCount: byAuthor[author.ID],
		})
	}
	return summaries, nil
}
