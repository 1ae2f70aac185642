package testhelpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/storage"
)

// Password is the plain text password of every fixture user
const Password = "s3cret-pass"

// PNGDataURI is a valid one pixel image payload
const PNGDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// NewMediaStorage returns local storage rooted in a temporary directory
func NewMediaStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	media, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	return media
}

// CreateUser inserts a user whose email is derived from username
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleUser)
}

// CreateAdmin inserts a user with the admin role
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleAdmin)
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	// MinCost keeps the suites fast
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Caller returns the authenticated identity of user
func Caller(user *models.User) middleware.Caller {
	return middleware.Caller{UserID: user.ID, Role: user.Role}
}

func CreateTag(t *testing.T, db *gorm.DB, name, slug, color string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug, Color: color}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// Line is an ingredient amount used when seeding recipes
type Line struct {
	Ingredient *models.Ingredient
	Amount     int
}

// RecipeOption tweaks a seeded recipe before it is inserted
type RecipeOption func(*models.Recipe)

// CreatedAt pins the creation time so ordering is deterministic
func CreatedAt(ts time.Time) RecipeOption {
	return func(r *models.Recipe) {
		r.CreatedAt = ts
		r.UpdatedAt = ts
	}
}

// CreateRecipe inserts a recipe with its tag links and ingredient lines
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, lines []Line, opts ...RecipeOption) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       "recipes/" + name + ".png",
		Text:        "Mix and serve.",
		CookingTime: 10,
	}
	for _, opt := range opts {
		opt(recipe)
	}
	require.NoError(t, db.Omit("Author", "Tags", "Ingredients").Create(recipe).Error)

	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, tag.ID).Error)
	}
	for _, line := range lines {
		ri := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: line.Ingredient.ID, Amount: line.Amount}
		require.NoError(t, db.Omit("Ingredient").Create(ri).Error)
	}
	return recipe
}
