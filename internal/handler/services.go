package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/application"
	"github.com/stayhub/service-rental/internal/common/middleware"
	"github.com/stayhub/service-rental/internal/common/response"
)

// BookingService is the booking lifecycle as used by BookingHandler.
type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req application.CreateBookingRequest) (*application.CheckoutDTO, error)
	ListMyBookings(ctx context.Context, userID uuid.UUID, page, pageSize int) (*application.BookingListDTO, error)
	GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*application.BookingDTO, error)
	UpdateBooking(ctx context.Context, userID, bookingID uuid.UUID, req application.UpdateBookingRequest) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) error
}

// WebhookService reconciles payment provider deliveries.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// PropertyService is the listing API as used by PropertyHandler.
type PropertyService interface {
	CreateProperty(ctx context.Context, ownerID uuid.UUID, req application.CreatePropertyRequest) (*application.PropertyDTO, error)
	ListProperties(ctx context.Context, viewerID uuid.UUID, page, pageSize int) (*application.PropertyPage, error)
	SearchByCity(ctx context.Context, viewerID uuid.UUID, city string) ([]application.PropertyDTO, error)
	GetProperty(ctx context.Context, viewerID, propertyID uuid.UUID) (*application.PropertyDTO, error)
	UpdateProperty(ctx context.Context, ownerID, propertyID uuid.UUID, req application.UpdatePropertyRequest) (*application.PropertyDTO, error)
	DeleteProperty(ctx context.Context, ownerID, propertyID uuid.UUID) error
}

// UserService is the account API as used by UserHandler.
type UserService interface {
	Register(ctx context.Context, req application.RegisterRequest) (*application.UserDTO, error)
	Login(ctx context.Context, req application.LoginRequest) (*application.LoginDTO, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*application.UserDTO, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*application.UserStatsDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req application.UpdateProfileRequest) (*application.UserDTO, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// FavoriteService is the favorites API as used by FavoriteHandler.
type FavoriteService interface {
	Toggle(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]application.PropertyDTO, error)
	Status(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)
}

// currentUser reads the authenticated caller, writing 401 when absent.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
	}
	return userID, ok
}

// pathID parses a uuid path parameter, writing 400 when malformed.
func pathID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and pageSize; malformed values fall back to the defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return application.NormalizePage(page, pageSize)
}
