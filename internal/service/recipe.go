package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/logging"
	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/storage"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db    *gorm.DB
	media storage.Storage
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, media storage.Storage) *RecipeService {
	return &RecipeService{
		db:    db,
		media: media,
	}
}

// withDetails preloads everything the read representation needs
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

// Get retrieves a recipe by ID with its author, tags and ingredient lines
func (s *RecipeService) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, translateError(err, "recipe")
	}
	return &recipe, nil
}

// ViewerState holds the per-caller flags rendered next to recipes
type ViewerState struct {
	Favorited  map[uint]bool
	InCart     map[uint]bool
	Subscribed map[uint]bool
}

// ViewerState loads favorite, cart and subscription flags for recipes
func (s *RecipeService) ViewerState(ctx context.Context, caller middleware.Caller, recipes []models.Recipe) (*ViewerState, error) {
	state := &ViewerState{
		Favorited:  map[uint]bool{},
		InCart:     map[uint]bool{},
		Subscribed: map[uint]bool{},
	}
	if caller.IsAnonymous() || len(recipes) == 0 {
		return state, nil
	}

	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	for _, kind := range []RelationKind{RelationFavorite, RelationShoppingCart} {
		var ids []uint
		err := s.db.WithContext(ctx).Model(kind.model()).
			Where("user_id = ? AND recipe_id IN ?", caller.UserID, recipeIDs).
			Pluck("recipe_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load %s flags: %w", kind, err)
		}
		target := state.Favorited
		if kind == RelationShoppingCart {
			target = state.InCart
		}
		for _, id := range ids {
			target[id] = true
		}
	}

	subscribed, err := subscribedAuthors(ctx, s.db, caller, authorIDs)
	if err != nil {
		return nil, err
	}
	state.Subscribed = subscribed
	return state, nil
}

// recipeInput is the validated form shared by create and update
type recipeInput struct {
	tagIDs      []uint
	ingredients []types.IngredientAmount
	image       *storage.Image
}

func validateTags(ids []uint, verr *ValidationError) {
	if len(ids) == 0 {
		verr.Add("tags", "At least one tag is required.")
		return
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			verr.Add("tags", "Tags must not repeat.")
			return
		}
		seen[id] = true
	}
}

func validateIngredients(items []types.IngredientAmount, verr *ValidationError) {
	if len(items) == 0 {
		verr.Add("ingredients", "At least one ingredient is required.")
		return
	}
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			verr.Add("ingredients", "Ingredients must not repeat.")
			return
		}
		seen[item.ID] = true
		if item.Amount < 1 {
			verr.Add("ingredients", "Amount must be at least 1.")
			return
		}
	}
}

func validateCookingTime(minutes int, verr *ValidationError) {
	if !models.ValidCookingTime(minutes) {
		verr.Add("cooking_time", "Cooking time must be between 1 and 1440 minutes.")
	}
}

func decodeImage(uri string, verr *ValidationError) *storage.Image {
	img, err := storage.DecodeDataURI(uri)
	if err != nil {
		verr.Add("image", err.Error())
		return nil
	}
	return img
}

// Create publishes a recipe authored by the caller
func (s *RecipeService) Create(ctx context.Context, caller middleware.Caller, req *types.RecipeCreateRequest) (*models.Recipe, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{}
	validateTags(req.Tags, verr)
	validateIngredients(req.Ingredients, verr)
	validateCookingTime(req.CookingTime, verr)
	in := recipeInput{tagIDs: req.Tags, ingredients: req.Ingredients}
	in.image = decodeImage(req.Image, verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	key := in.image.Key()
	if err := s.media.Save(ctx, key, in.image.Data, in.image.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store recipe image: %w", err)
	}

	recipe := models.Recipe{
		AuthorID:    caller.UserID,
		Name:        req.Name,
		Image:       key,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, recipe.ID, in.tagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, in.ingredients)
	})
	if err != nil {
		removeMedia(ctx, s.media, key)
		return nil, translateError(err, "recipe")
	}

	metrics.RecipesWritten.WithLabelValues("create").Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", caller.UserID).Msg("Recipe created")
	return s.Get(ctx, recipe.ID)
}

// Update applies a partial update. Tags and ingredients, when present,
// replace the existing sets; a new image replaces the stored one.
func (s *RecipeService) Update(ctx context.Context, caller middleware.Caller, id uint, req *types.RecipeUpdateRequest) (*models.Recipe, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	recipe, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	updates := map[string]interface{}{}
	var in recipeInput
	if req.Tags != nil {
		validateTags(*req.Tags, verr)
		in.tagIDs = *req.Tags
	}
	if req.Ingredients != nil {
		validateIngredients(*req.Ingredients, verr)
		in.ingredients = *req.Ingredients
	}
	if req.CookingTime != nil {
		validateCookingTime(*req.CookingTime, verr)
		updates["cooking_time"] = *req.CookingTime
	}
	if req.Name != nil {
		if *req.Name == "" {
			verr.Add("name", "This field may not be blank.")
		}
		updates["name"] = *req.Name
	}
	if req.Text != nil {
		if *req.Text == "" {
			verr.Add("text", "This field may not be blank.")
		}
		updates["text"] = *req.Text
	}
	if req.Image != nil {
		in.image = decodeImage(*req.Image, verr)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	var newImage string
	if in.image != nil {
		newImage = in.image.Key()
		if err := s.media.Save(ctx, newImage, in.image.Data, in.image.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store recipe image: %w", err)
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Tags != nil {
			if err := replaceTags(tx, recipe.ID, in.tagIDs); err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := replaceIngredients(tx, recipe.ID, in.ingredients); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if newImage != "" {
			removeMedia(ctx, s.media, newImage)
		}
		return nil, translateError(err, "recipe")
	}
	if newImage != "" {
		removeMedia(ctx, s.media, oldImage)
	}

	metrics.RecipesWritten.WithLabelValues("update").Inc()
	return s.Get(ctx, recipe.ID)
}

// Delete removes a recipe together with its lines, tag links, favorites and cart rows
func (s *RecipeService) Delete(ctx context.Context, caller middleware.Caller, id uint) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}
	recipe, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRecipeRows(tx, []uint{recipe.ID})
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	removeMedia(ctx, s.media, recipe.Image)
	metrics.RecipesWritten.WithLabelValues("delete").Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("Recipe deleted")
	return nil
}

func (s *RecipeService) loadOwned(ctx context.Context, caller middleware.Caller, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, translateError(err, "recipe")
	}
	if !caller.CanModify(recipe.AuthorID) {
		return nil, ErrForbidden
	}
	return &recipe, nil
}

// replaceTags points recipeID at exactly tagIDs
func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	var count int64
	if err := tx.Model(&models.Tag{}).Where("id IN ?", tagIDs).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(tagIDs) {
		return notFound("tag")
	}

	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return err
	}
	rows := make([]map[string]interface{}, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, map[string]interface{}{"recipe_id": recipeID, "tag_id": id})
	}
	return tx.Table("recipe_tags").Create(rows).Error
}

// replaceIngredients rewrites the ingredient lines of recipeID
func replaceIngredients(tx *gorm.DB, recipeID uint, items []types.IngredientAmount) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return notFound("ingredient")
	}

	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	lines := make([]models.RecipeIngredient, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount})
	}
	return tx.Omit("Ingredient").Create(&lines).Error
}

// deleteRecipeRows removes recipes and every row that references them
func deleteRecipeRows(tx *gorm.DB, recipeIDs []uint) error {
	if len(recipeIDs) == 0 {
		return nil
	}
	for _, model := range []interface{}{&models.Favorite{}, &models.ShoppingCart{}, &models.RecipeIngredient{}} {
		if err := tx.Where("recipe_id IN ?", recipeIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id IN ?", recipeIDs).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", recipeIDs).Delete(&models.Recipe{}).Error
}

// removeMedia deletes a stored image, logging rather than failing
func removeMedia(ctx context.Context, media storage.Storage, key string) {
	if key == "" {
		return
	}
	if err := media.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to remove media object")
	}
}
