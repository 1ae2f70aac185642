package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// recipeAction names the operation a recipe endpoint performs. It selects
// the payload decoder and the representation of the answer.
type recipeAction int

const (
	actionList recipeAction = iota
	actionRetrieve
	actionCreate
	actionUpdate
	actionFavorite
	actionShoppingCart
)

func (a recipeAction) String() string {
	switch a {
	case actionList:
		return "list"
	case actionRetrieve:
		return "retrieve"
	case actionCreate:
		return "create"
	case actionUpdate:
		return "partial_update"
	case actionFavorite:
		return "favorite"
	case actionShoppingCart:
		return "shopping_cart"
	}
	return fmt.Sprintf("recipeAction(%d)", int(a))
}

// decode binds the payload the action expects. Actions without a payload return nil.
func (a recipeAction) decode(c *gin.Context) (interface{}, error) {
	switch a {
	case actionList:
		var q types.RecipeListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			return nil, err
		}
		return &q, nil
	case actionCreate:
		var req types.RecipeCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	case actionUpdate:
		var req types.RecipeUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	return nil, nil
}

// compact reports whether the action answers with the short summary
func (a recipeAction) compact() bool {
	return a == actionFavorite || a == actionShoppingCart
}

func (a recipeAction) relation() service.RelationKind {
	if a == actionShoppingCart {
		return service.RelationShoppingCart
	}
	return service.RelationFavorite
}

// RecipeHandler serves recipes, the per-user lists and the shopping list export
type RecipeHandler struct {
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingService
	limiter   *middleware.RateLimiter
	paginator Paginator
	render    Renderer
}

// NewRecipeHandler wires the recipe endpoints. limiter may be nil when
// redis is not configured.
func NewRecipeHandler(recipes *service.RecipeService, relations *service.RelationService, shopping *service.ShoppingService, limiter *middleware.RateLimiter, paginator Paginator, render Renderer) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		relations: relations,
		shopping:  shopping,
		limiter:   limiter,
		paginator: paginator,
		render:    render,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	create := []gin.HandlerFunc{middleware.RequireAuth()}
	if h.limiter != nil {
		create = append(create, h.limiter.RateLimitMiddleware())
	}
	create = append(create, h.Create)

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", h.List)
		recipes.POST("/", create...)
		recipes.GET("/download_shopping_cart/", middleware.RequireAuth(), h.DownloadShoppingCart)
		recipes.GET("/:id/", h.Retrieve)
		recipes.PATCH("/:id/", middleware.RequireAuth(), h.Update)
		recipes.DELETE("/:id/", middleware.RequireAuth(), h.Delete)

		for _, action := range []recipeAction{actionFavorite, actionShoppingCart} {
			path := "/:id/" + action.String() + "/"
			recipes.POST(path, middleware.RequireAuth(), h.addTo(action))
			recipes.DELETE(path, middleware.RequireAuth(), h.removeFrom(action))
		}
	}
}

// respond writes recipes in the representation action answers with
func (h *RecipeHandler) respond(c *gin.Context, action recipeAction, status int, recipe *models.Recipe) {
	if action.compact() {
		c.JSON(status, h.render.recipeShort(recipe))
		return
	}
	state, err := h.recipes.ViewerState(c.Request.Context(), middleware.CallerFrom(c), []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, h.render.recipe(recipe, state))
}

func parseFlag(v string) bool {
	return v == "1" || v == "true"
}

func (h *RecipeHandler) List(c *gin.Context) {
	payload, err := actionList.decode(c)
	if err != nil {
		respondBindError(c, err)
		return
	}
	q := payload.(*types.RecipeListQuery)

	filter := service.RecipeFilter{
		Tags:             q.Tags,
		IsFavorited:      parseFlag(q.IsFavorited),
		IsInShoppingCart: parseFlag(q.IsInShoppingCart),
	}
	if q.Author != "" {
		id, err := strconv.ParseUint(q.Author, 10, 64)
		if err != nil {
			respondError(c, service.NewValidationError("author", "A valid integer is required."))
			return
		}
		author := uint(id)
		filter.AuthorID = &author
	}

	page, err := h.paginator.Parse(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	caller := middleware.CallerFrom(c)
	recipes, total, err := h.recipes.List(ctx, caller, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := h.recipes.ViewerState(ctx, caller, recipes)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		results = append(results, h.render.recipe(&recipes[i], state))
	}
	c.JSON(http.StatusOK, newPage(c, page, total, results))
}

func (h *RecipeHandler) Retrieve(c *gin.Context) {
	id, ok := parseID(c, "recipe")
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, actionRetrieve, http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	payload, err := actionCreate.decode(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), middleware.CallerFrom(c), payload.(*types.RecipeCreateRequest))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, actionCreate, http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "recipe")
	if !ok {
		return
	}
	payload, err := actionUpdate.decode(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), middleware.CallerFrom(c), id, payload.(*types.RecipeUpdateRequest))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, actionUpdate, http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "recipe")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) addTo(action recipeAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "recipe")
		if !ok {
			return
		}
		recipe, err := h.relations.Add(c.Request.Context(), middleware.CallerFrom(c), action.relation(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		h.respond(c, action, http.StatusOK, recipe)
	}
}

func (h *RecipeHandler) removeFrom(action recipeAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "recipe")
		if !ok {
			return
		}
		if err := h.relations.Remove(c.Request.Context(), middleware.CallerFrom(c), action.relation(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DownloadShoppingCart exports the summed ingredients of the caller's cart as CSV
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shopping.Items(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=ingredients.csv")
	c.Status(http.StatusOK)
	if err := service.WriteCSV(c.Writer, items); err != nil {
		_ = c.Error(err)
	}
}
