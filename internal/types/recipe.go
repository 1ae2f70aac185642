package types

// IngredientAmount is one ingredient line in a recipe write payload
type IngredientAmount struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required"`
}

// RecipeCreateRequest is the body of POST /recipes/
type RecipeCreateRequest struct {
	Tags        []uint             `json:"tags" binding:"required"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"required,dive"`
	Name        string             `json:"name" binding:"required,max=200"`
	Image       string             `json:"image" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	CookingTime int                `json:"cooking_time" binding:"required"`
}

// RecipeUpdateRequest is the body of PATCH /recipes/{id}/
type RecipeUpdateRequest struct {
	Tags        *[]uint             `json:"tags"`
	Ingredients *[]IngredientAmount `json:"ingredients" binding:"omitempty,dive"`
	Name        *string             `json:"name" binding:"omitempty,max=200"`
	Image       *string             `json:"image"`
	Text        *string             `json:"text"`
	CookingTime *int                `json:"cooking_time"`
}

// RecipeIngredientResponse is an ingredient line with its resolved name and unit
type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// TagResponse is the representation of a tag
type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// RecipeResponse is the full read representation of a recipe
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// RecipeShort is the compact summary returned by favorite and cart toggles
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeListQuery carries the query parameters of GET /recipes/
type RecipeListQuery struct {
	Tags             []string `form:"tags"`
	Author           string   `form:"author"`
	IsFavorited      string   `form:"is_favorited" binding:"omitempty,oneof=0 1 true false"`
	IsInShoppingCart string   `form:"is_in_shopping_cart" binding:"omitempty,oneof=0 1 true false"`
}
