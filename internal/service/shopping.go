package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
)

// ShoppingItem is one aggregated line of the shopping list
type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	Total           int64
}

// ShoppingService aggregates the ingredients of carted recipes
type ShoppingService struct {
	db *gorm.DB
}

func NewShoppingService(db *gorm.DB) *ShoppingService {
	return &ShoppingService{db: db}
}

// Items sums ingredient amounts across every recipe in the caller's cart,
// grouped by ingredient name and unit and sorted by both
func (s *ShoppingService) Items(ctx context.Context, caller middleware.Caller) ([]ShoppingItem, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	var items []ShoppingItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", caller.UserID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC, ingredients.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// WriteCSV renders items as name,unit,total rows without a header
func WriteCSV(w io.Writer, items []ShoppingItem) error {
	cw := csv.NewWriter(w)
	for _, item := range items {
		if err := cw.Write([]string{item.Name, item.MeasurementUnit, strconv.FormatInt(item.Total, 10)}); err != nil {
			return fmt.Errorf("failed to write shopping list: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write shopping list: %w", err)
	}
	metrics.ShoppingListDownloads.Inc()
	return nil
}
