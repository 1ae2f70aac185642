package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 1440
)

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index:idx_recipes_author" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time > 0 AND cooking_time <= 1440" json:"cooking_time"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt   time.Time          `gorm:"index:idx_recipes_created_at" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (Recipe) TableName() string {
	return "recipes"
}

// ValidCookingTime reports whether minutes lies in (0, 1440]
func ValidCookingTime(minutes int) bool {
	return minutes >= MinCookingTime && minutes <= MaxCookingTime
}

func (r *Recipe) BeforeSave(tx *gorm.DB) error {
	if !ValidCookingTime(r.CookingTime) {
		return &FieldError{Field: "cooking_time", Message: "Cooking time must be between 1 and 1440 minutes."}
	}
	return nil
}

// RecipeIngredient is one ingredient line of a recipe
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredients_pair" json:"recipe_id"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredients_pair" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount > 0" json:"amount"`
}

func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

func (ri *RecipeIngredient) BeforeSave(tx *gorm.DB) error {
	if ri.Amount <= 0 {
		return &FieldError{Field: "amount", Message: "Amount must be a positive integer."}
	}
	return nil
}
