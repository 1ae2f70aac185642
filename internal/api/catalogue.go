package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// TagHandler serves the tag catalogue
type TagHandler struct {
	tags   *service.TagService
	render Renderer
}

func NewTagHandler(tags *service.TagService, render Renderer) *TagHandler {
	return &TagHandler{tags: tags, render: render}
}

func (h *TagHandler) RegisterRoutes(router *gin.RouterGroup) {
	tags := router.Group("/tags")
	{
		tags.GET("/", h.List)
		tags.POST("/", middleware.RequireAdmin(), h.Create)
		tags.GET("/:id/", h.Get)
	}
}

func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		results = append(results, h.render.tag(&tags[i]))
	}
	c.JSON(http.StatusOK, results)
}

func (h *TagHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "tag")
	if !ok {
		return
	}
	tag, err := h.tags.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render.tag(tag))
}

func (h *TagHandler) Create(c *gin.Context) {
	var req types.TagCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.render.tag(tag))
}

// IngredientHandler serves ingredient lookups
type IngredientHandler struct {
	ingredients *service.IngredientService
	render      Renderer
}

func NewIngredientHandler(ingredients *service.IngredientService, render Renderer) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients, render: render}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("/", h.Search)
		ingredients.GET("/:id/", h.Get)
	}
}

// Search lists ingredients whose name starts with ?name=, ignoring case
func (h *IngredientHandler) Search(c *gin.Context) {
	ingredients, err := h.ingredients.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]types.IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		results = append(results, h.render.ingredient(&ingredients[i]))
	}
	c.JSON(http.StatusOK, results)
}

func (h *IngredientHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "ingredient")
	if !ok {
		return
	}
	ingredient, err := h.ingredients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render.ingredient(ingredient))
}
