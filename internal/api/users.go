package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// UserHandler serves registration, profiles and subscriptions
type UserHandler struct {
	users         *service.UserService
	subscriptions *service.SubscriptionService
	paginator     Paginator
	render        Renderer
}

func NewUserHandler(users *service.UserService, subscriptions *service.SubscriptionService, paginator Paginator, render Renderer) *UserHandler {
	return &UserHandler{
		users:         users,
		subscriptions: subscriptions,
		paginator:     paginator,
		render:        render,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/", h.List)
		users.POST("/", h.Register)
		users.GET("/me/", middleware.RequireAuth(), h.Me)
		users.PATCH("/me/", middleware.RequireAuth(), h.UpdateMe)
		users.POST("/set_password/", middleware.RequireAuth(), h.SetPassword)
		users.GET("/subscriptions/", middleware.RequireAuth(), h.Subscriptions)
		users.GET("/:id/", h.Get)
		users.DELETE("/:id/", middleware.RequireAuth(), h.Delete)
		users.POST("/:id/subscribe/", middleware.RequireAuth(), h.Subscribe)
		users.DELETE("/:id/subscribe/", middleware.RequireAuth(), h.Unsubscribe)
	}
}

// parseID reads a numeric path parameter. Anything else cannot name a row.
func parseID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: what + " not found"})
		return 0, false
	}
	return uint(id), true
}

// parseRecipesLimit reads recipes_limit. Absent means no limit.
func parseRecipesLimit(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("recipes_limit")
	if !ok {
		return -1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, service.NewValidationError("recipes_limit", "A valid non-negative integer is required.")
	}
	return n, nil
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.render.user(user, false))
}

func (h *UserHandler) List(c *gin.Context) {
	page, err := h.paginator.Parse(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	users, total, err := h.users.List(ctx, page)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := h.users.SubscribedTo(ctx, middleware.CallerFrom(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]types.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, h.render.user(&users[i], subscribed[users[i].ID]))
	}
	c.JSON(http.StatusOK, newPage(c, page, total, results))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	subscribed, err := h.users.SubscribedTo(ctx, middleware.CallerFrom(c), []uint{user.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render.user(user, subscribed[user.ID]))
}

func (h *UserHandler) me(c *gin.Context, user *models.User) {
	resp := h.render.user(user, false)
	resp.Role = string(user.Role)
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.CallerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.me(c, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req types.UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.users.UpdateMe(c.Request.Context(), middleware.CallerFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.me(c, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.SetPassword(c.Request.Context(), middleware.CallerFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, err := h.paginator.Parse(c)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := parseRecipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	authors, total, err := h.subscriptions.List(ctx, middleware.CallerFrom(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	summaries, err := h.subscriptions.Summaries(ctx, authors, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]types.SubscriptionResponse, 0, len(summaries))
	for i := range summaries {
		results = append(results, h.render.subscription(&summaries[i]))
	}
	c.JSON(http.StatusOK, newPage(c, page, total, results))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := parseID(c, "author")
	if !ok {
		return
	}
	limit, err := parseRecipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	author, err := h.subscriptions.Subscribe(ctx, middleware.CallerFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	summaries, err := h.subscriptions.Summaries(ctx, []models.User{*author}, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render.subscription(&summaries[0]))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := parseID(c, "author")
	if !ok {
		return
	}
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
