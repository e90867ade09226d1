package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/application"
	"github.com/stayhub/service-rental/internal/common/auth"
	"github.com/stayhub/service-rental/internal/common/middleware"
	"github.com/stayhub/service-rental/internal/common/response"
)

// PropertyHandler handles HTTP requests for listings.
type PropertyHandler struct {
	service PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(service PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// RegisterRoutes registers the authenticated property routes and the public list.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.GET("/properties-list", h.PublicList)

	properties := r.Group("/properties")
	properties.Use(middleware.AuthMiddleware(jwtManager))
	{
		properties.POST("", h.CreateProperty)
		properties.GET("", h.ListProperties)
		properties.GET("/search", h.SearchByCity)
		properties.GET("/newest", h.ListProperties)
		properties.GET("/:id", h.GetProperty)
		properties.PATCH("/:id", h.UpdateProperty)
		properties.DELETE("/:id", h.DeleteProperty)
	}
}

// CreateProperty handles POST /api/v1/properties
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateProperty(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ListProperties handles GET /api/v1/properties and /api/v1/properties/newest
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.list(c, userID)
}

// PublicList handles GET /api/v1/properties-list
func (h *PropertyHandler) PublicList(c *gin.Context) {
	h.list(c, uuid.Nil)
}

func (h *PropertyHandler) list(c *gin.Context, viewerID uuid.UUID) {
	page, pageSize := pageParams(c)

	result, err := h.service.ListProperties(c.Request.Context(), viewerID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Properties, result.Total, result.Page, result.PageSize)
}

// SearchByCity handles GET /api/v1/properties/search?city=
func (h *PropertyHandler) SearchByCity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	dtos, err := h.service.SearchByCity(c.Request.Context(), userID, c.Query("city"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// GetProperty handles GET /api/v1/properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id", "property")
	if !ok {
		return
	}

	dto, err := h.service.GetProperty(c.Request.Context(), userID, propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// UpdateProperty handles PATCH /api/v1/properties/:id
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id", "property")
	if !ok {
		return
	}

	var req application.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.UpdateProperty(c.Request.Context(), userID, propertyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "Property updated successfully", dto)
}

// DeleteProperty handles DELETE /api/v1/properties/:id
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id", "property")
	if !ok {
		return
	}

	if err := h.service.DeleteProperty(c.Request.Context(), userID, propertyID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "Property deleted successfully", nil)
}
