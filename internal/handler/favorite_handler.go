package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stayhub/service-rental/internal/common/auth"
	"github.com/stayhub/service-rental/internal/common/middleware"
	"github.com/stayhub/service-rental/internal/common/response"
)

// FavoriteHandler handles HTTP requests for saved properties.
type FavoriteHandler struct {
	service FavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(service FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// RegisterRoutes registers all favorite routes on the given router group.
func (h *FavoriteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	favorites := r.Group("/favorites")
	favorites.Use(middleware.AuthMiddleware(jwtManager))
	{
		favorites.POST("/:property_id", h.Toggle)
		favorites.GET("", h.List)
		favorites.GET("/:property_id/status", h.Status)
	}
}

// Toggle handles POST /api/v1/favorites/:property_id
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "property_id", "property")
	if !ok {
		return
	}

	dto, err := h.service.Toggle(c.Request.Context(), userID, propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Property removed from favorites"
	if dto.IsFavorite {
		message = "Property added to favorites"
	}
	response.SuccessWithMessage(c, message, dto)
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	dtos, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// Status handles GET /api/v1/favorites/:property_id/status
func (h *FavoriteHandler) Status(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "property_id", "property")
	if !ok {
		return
	}

	dto, err := h.service.Status(c.Request.Context(), userID, propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
