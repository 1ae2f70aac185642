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

// RelationKind selects which per-user recipe list a toggle acts on
type RelationKind int

const (
	RelationFavorite RelationKind = iota
	RelationShoppingCart
)

func (k RelationKind) String() string {
	switch k {
	case RelationFavorite:
		return "favorite"
	case RelationShoppingCart:
		return "shopping_cart"
	}
	return fmt.Sprintf("RelationKind(%d)", int(k))
}

func (k RelationKind) label() string {
	if k == RelationShoppingCart {
		return "shopping cart"
	}
	return "favorites"
}

func (k RelationKind) model() interface{} {
	if k == RelationShoppingCart {
		return &models.ShoppingCart{}
	}
	return &models.Favorite{}
}

func (k RelationKind) row(userID, recipeID uint) interface{} {
	if k == RelationShoppingCart {
		return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	}
	return &models.Favorite{UserID: userID, RecipeID: recipeID}
}

// RelationService toggles favorites and shopping cart entries
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

// Add puts a recipe on the caller's list and returns the recipe
func (s *RelationService) Add(ctx context.Context, caller middleware.Caller, kind RelationKind, recipeID uint) (*models.Recipe, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	var recipe models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recipe, recipeID).Error; err != nil {
			return translateError(err, "recipe")
		}

		var count int64
		if err := tx.Model(kind.model()).Where("user_id = ? AND recipe_id = ?", caller.UserID, recipeID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("recipe %w to %s", ErrAlreadyExists, kind.label())
		}

		if err := tx.Omit("User", "Recipe").Create(kind.row(caller.UserID, recipeID)).Error; err != nil {
			// a concurrent request won the race past the existence check
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("recipe %w to %s", ErrAlreadyExists, kind.label())
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RelationToggles.WithLabelValues(kind.String(), "add").Inc()
	return &recipe, nil
}

// Remove takes a recipe off the caller's list
func (s *RelationService) Remove(ctx context.Context, caller middleware.Caller, kind RelationKind, recipeID uint) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up recipe: %w", err)
	}
	if count == 0 {
		return notFound("recipe")
	}

	res := db.Where("user_id = ? AND recipe_id = ?", caller.UserID, recipeID).Delete(kind.model())
	if res.Error != nil {
		return fmt.Errorf("failed to remove %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe %w in %s", ErrNotPresent, kind.label())
	}

	metrics.RelationToggles.WithLabelValues(kind.String(), "remove").Inc()
	return nil
}
