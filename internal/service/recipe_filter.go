package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
)

// RecipeFilter holds the optional listing predicates
type RecipeFilter struct {
	// Tags keeps recipes carrying at least one of these slugs. Empty means no restriction.
	Tags             []string
	AuthorID         *uint
	IsFavorited      bool
	IsInShoppingCart bool
}

// List returns a page of recipes, newest first.
//
// Exactly one membership predicate is chosen: the caller's favorites, else
// the caller's cart, else the author, else everything. Favorite and cart
// requests from anonymous callers fall through to the next branch, so an
// anonymous is_favorited=1&author=N lists that author's recipes. The tag
// filter is applied on top of whichever branch was chosen.
func (s *RecipeService) List(ctx context.Context, caller middleware.Caller, f RecipeFilter, page Pagination) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Recipe{})

	switch {
	case f.IsFavorited && !caller.IsAnonymous():
		query = query.Where("recipes.id IN (?)", memberRecipeIDs(db, RelationFavorite, caller.UserID))
	case f.IsInShoppingCart && !caller.IsAnonymous():
		query = query.Where("recipes.id IN (?)", memberRecipeIDs(db, RelationShoppingCart, caller.UserID))
	case f.AuthorID != nil:
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", *f.AuthorID).Count(&count).Error; err != nil {
			return nil, 0, fmt.Errorf("failed to look up author: %w", err)
		}
		if count == 0 {
			return nil, 0, notFound("author")
		}
		query = query.Where("recipes.author_id = ?", *f.AuthorID)
	}

	if len(f.Tags) > 0 {
		tagged := db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.Tags)
		query = query.Where("recipes.id IN (?)", tagged)
	}

	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withDetails(base).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

func memberRecipeIDs(db *gorm.DB, kind RelationKind, userID uint) *gorm.DB {
	return db.Model(kind.model()).Select("recipe_id").Where("user_id = ?", userID)
}
