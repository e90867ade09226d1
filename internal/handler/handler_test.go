package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayhub/service-rental/internal/application"
	"github.com/stayhub/service-rental/internal/common/auth"
	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/common/response"
)

type stubBookings struct {
	created  application.CreateBookingRequest
	updated  application.UpdateBookingRequest
	page     int
	pageSize int
	err      error
}

func (s *stubBookings) CreateBooking(_ context.Context, userID uuid.UUID, req application.CreateBookingRequest) (*application.CheckoutDTO, error) {
	s.created = req
	if s.err != nil {
		return nil, s.err
	}
	id := uuid.New()
	return &application.CheckoutDTO{
		BookingID:     id,
		ClientSecret:  "pi_1_secret",
		PaymentIntent: "pi_1_secret",
		Booking:       application.BookingDTO{ID: id, UserID: userID, Status: "pending"},
	}, nil
}

func (s *stubBookings) ListMyBookings(_ context.Context, userID uuid.UUID, page, pageSize int) (*application.BookingListDTO, error) {
	s.page, s.pageSize = page, pageSize
	return &application.BookingListDTO{
		Bookings:   []application.BookingDTO{{ID: uuid.New(), UserID: userID}},
		TotalCount: 21,
		Page:       page,
		PageSize:   pageSize,
	}, s.err
}

func (s *stubBookings) GetBooking(_ context.Context, userID, bookingID uuid.UUID) (*application.BookingDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.BookingDTO{ID: bookingID, UserID: userID}, nil
}

func (s *stubBookings) UpdateBooking(_ context.Context, userID, bookingID uuid.UUID, req application.UpdateBookingRequest) (*application.BookingDTO, error) {
	s.updated = req
	if s.err != nil {
		return nil, s.err
	}
	return &application.BookingDTO{ID: bookingID, UserID: userID}, nil
}

func (s *stubBookings) CancelBooking(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

type stubWebhooks struct {
	payload   []byte
	signature string
	err       error
}

func (s *stubWebhooks) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	s.payload, s.signature = payload, signature
	return s.err
}

type stubProperties struct {
	viewer uuid.UUID
	city   string
	err    error
}

func (s *stubProperties) CreateProperty(_ context.Context, ownerID uuid.UUID, req application.CreatePropertyRequest) (*application.PropertyDTO, error) {
	return &application.PropertyDTO{ID: uuid.New(), OwnerID: ownerID, Name: req.Name}, s.err
}

func (s *stubProperties) ListProperties(_ context.Context, viewerID uuid.UUID, page, pageSize int) (*application.PropertyPage, error) {
	s.viewer = viewerID
	return &application.PropertyPage{Properties: []application.PropertyDTO{}, Page: page, PageSize: pageSize}, s.err
}

func (s *stubProperties) SearchByCity(_ context.Context, viewerID uuid.UUID, city string) ([]application.PropertyDTO, error) {
	s.viewer, s.city = viewerID, city
	if city == "" {
		return nil, domain.NewValidationError("city is required")
	}
	return []application.PropertyDTO{}, s.err
}

func (s *stubProperties) GetProperty(_ context.Context, viewerID, propertyID uuid.UUID) (*application.PropertyDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.PropertyDTO{ID: propertyID}, nil
}

func (s *stubProperties) UpdateProperty(_ context.Context, _ uuid.UUID, propertyID uuid.UUID, _ application.UpdatePropertyRequest) (*application.PropertyDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.PropertyDTO{ID: propertyID}, nil
}

func (s *stubProperties) DeleteProperty(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

type stubUsers struct {
	err error
}

func (s *stubUsers) Register(_ context.Context, req application.RegisterRequest) (*application.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.UserDTO{ID: uuid.New(), Email: req.Email, Name: req.Name}, nil
}

func (s *stubUsers) Login(_ context.Context, req application.LoginRequest) (*application.LoginDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.LoginDTO{Token: "token", User: application.UserDTO{Email: req.Email}}, nil
}

func (s *stubUsers) GetProfile(_ context.Context, userID uuid.UUID) (*application.UserDTO, error) {
	return &application.UserDTO{ID: userID}, s.err
}

func (s *stubUsers) GetStats(_ context.Context, userID uuid.UUID) (*application.UserStatsDTO, error) {
	return &application.UserStatsDTO{UserDTO: application.UserDTO{ID: userID}, BookingsCount: 2}, s.err
}

func (s *stubUsers) UpdateProfile(_ context.Context, userID uuid.UUID, _ application.UpdateProfileRequest) (*application.UserDTO, error) {
	return &application.UserDTO{ID: userID}, s.err
}

func (s *stubUsers) DeleteAccount(context.Context, uuid.UUID) error {
	return s.err
}

type stubFavorites struct {
	favorite bool
	err      error
}

func (s *stubFavorites) Toggle(_ context.Context, _ uuid.UUID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.favorite = !s.favorite
	return &application.FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: s.favorite}, nil
}

func (s *stubFavorites) List(context.Context, uuid.UUID) ([]application.PropertyDTO, error) {
	return []application.PropertyDTO{}, s.err
}

func (s *stubFavorites) Status(_ context.Context, _ uuid.UUID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error) {
	return &application.FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: s.favorite}, s.err
}

type testServer struct {
	router     *gin.Engine
	userID     uuid.UUID
	token      string
	bookings   *stubBookings
	webhooks   *stubWebhooks
	properties *stubProperties
	users      *stubUsers
	favorites  *stubFavorites
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := jwtManager.GenerateToken(userID, "guest@example.com")
	require.NoError(t, err)

	s := &testServer{
		router:     gin.New(),
		userID:     userID,
		token:      token,
		bookings:   &stubBookings{},
		webhooks:   &stubWebhooks{},
		properties: &stubProperties{},
		users:      &stubUsers{},
		favorites:  &stubFavorites{},
	}

	v1 := s.router.Group("/api/v1")
	NewBookingHandler(s.bookings).RegisterRoutes(v1, jwtManager)
	NewPropertyHandler(s.properties).RegisterRoutes(v1, jwtManager)
	NewUserHandler(s.users).RegisterRoutes(v1, jwtManager)
	NewFavoriteHandler(s.favorites).RegisterRoutes(v1, jwtManager)
	NewWebhookHandler(s.webhooks).RegisterRoutes(s.router)
	return s
}

func (s *testServer) do(method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{
		"property_id": uuid.New(),
		"check_in":    "2025-07-01",
		"check_out":   "2025-07-03",
		"guest_count": 2,
	}

	w := s.do(http.MethodPost, "/api/v1/bookings", body, true)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2025-07-01", s.bookings.created.CheckIn)
	assert.Contains(t, w.Body.String(), `"clientSecret":"pi_1_secret"`)
}

func TestBookingHandler_CreateBookingRejections(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		authed bool
		err    error
		status int
	}{
		{
			name:   "no token",
			body:   map[string]interface{}{},
			status: http.StatusUnauthorized,
		},
		{
			name:   "missing fields",
			body:   map[string]interface{}{"check_in": "2025-07-01"},
			authed: true,
			status: http.StatusBadRequest,
		},
		{
			name:   "overlap",
			body:   map[string]interface{}{"property_id": uuid.New(), "check_in": "2025-07-01", "check_out": "2025-07-03", "guest_count": 1},
			authed: true,
			err:    domain.NewConflictError("property is not available for the selected dates"),
			status: http.StatusConflict,
		},
		{
			name:   "gateway down",
			body:   map[string]interface{}{"property_id": uuid.New(), "check_in": "2025-07-01", "check_out": "2025-07-03", "guest_count": 1},
			authed: true,
			err:    domain.NewGatewayError("create payment intent", errors.New("timeout")),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.bookings.err = tt.err

			w := s.do(http.MethodPost, "/api/v1/bookings", tt.body, tt.authed)

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestBookingHandler_ListMyBookingsPaginates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/users/bookings?page=2&pageSize=10", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(21), resp.Meta.TotalCount)
}

func TestBookingHandler_ListMyBookingsDefaultsPage(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/users/bookings?page=abc&pageSize=-4", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.bookings.page)
	assert.Equal(t, 10, s.bookings.pageSize)
}

func TestBookingHandler_ByID(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/bookings/not-a-uuid", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestServer(t)
		s.bookings.err = domain.NewNotFoundError("booking", "x")
		w := s.do(http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		s := newTestServer(t)
		s.bookings.err = domain.NewForbiddenError("booking belongs to another user")
		w := s.do(http.MethodPatch, "/api/v1/bookings/"+uuid.NewString(), map[string]interface{}{"guest_count": 3}, true)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("update binds optional fields", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodPatch, "/api/v1/bookings/"+uuid.NewString(), map[string]interface{}{"check_out": "2025-07-09"}, true)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, s.bookings.updated.CheckOut)
		assert.Equal(t, "2025-07-09", *s.bookings.updated.CheckOut)
		assert.Nil(t, s.bookings.updated.CheckIn)
	})

	t.Run("cancel completed", func(t *testing.T) {
		s := newTestServer(t)
		s.bookings.err = domain.NewImmutableStateError("completed bookings cannot be cancelled")
		w := s.do(http.MethodDelete, "/api/v1/bookings/"+uuid.NewString(), nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "immutable_state", decode(t, w).Error.Kind)
	})

	t.Run("cancel ok", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodDelete, "/api/v1/bookings/"+uuid.NewString(), nil, true)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWebhookHandler(t *testing.T) {
	t.Run("passes raw body and signature", func(t *testing.T) {
		s := newTestServer(t)
		payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		w := httptest.NewRecorder()

		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
		assert.Equal(t, payload, s.webhooks.payload)
		assert.Equal(t, "t=1,v1=abc", s.webhooks.signature)
	})

	t.Run("bad signature", func(t *testing.T) {
		s := newTestServer(t)
		s.webhooks.err = domain.NewSignatureInvalidError()
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("processing failure", func(t *testing.T) {
		s := newTestServer(t)
		s.webhooks.err = errors.New("db down")
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestPropertyHandler(t *testing.T) {
	t.Run("public list has no viewer", func(t *testing.T) {
		s := newTestServer(t)
		s.properties.viewer = uuid.New()
		w := s.do(http.MethodGet, "/api/v1/properties-list", nil, false)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uuid.Nil, s.properties.viewer)
	})

	t.Run("authed list carries viewer", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/properties/newest", nil, true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, s.userID, s.properties.viewer)
	})

	t.Run("list requires token", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/properties", nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("search", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/properties/search?city=Lisbon", nil, true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Lisbon", s.properties.city)
	})

	t.Run("search without city", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/properties/search", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create invalid", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodPost, "/api/v1/properties", map[string]interface{}{"name": "Loft"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create", func(t *testing.T) {
		s := newTestServer(t)
		body := map[string]interface{}{"name": "Loft", "price_per_night": 120.5, "city": "Lisbon", "capacity": 2}
		w := s.do(http.MethodPost, "/api/v1/properties", body, true)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("delete with active bookings", func(t *testing.T) {
		s := newTestServer(t)
		s.properties.err = domain.NewConflictError("property has active bookings")
		w := s.do(http.MethodDelete, "/api/v1/properties/"+uuid.NewString(), nil, true)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler(t *testing.T) {
	t.Run("register is public", func(t *testing.T) {
		s := newTestServer(t)
		body := map[string]interface{}{"name": "Ana", "email": "ana@example.com", "password": "secret1"}
		w := s.do(http.MethodPost, "/api/v1/users", body, false)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("register short password", func(t *testing.T) {
		s := newTestServer(t)
		body := map[string]interface{}{"name": "Ana", "email": "ana@example.com", "password": "123"}
		w := s.do(http.MethodPost, "/api/v1/users", body, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login bad credentials", func(t *testing.T) {
		s := newTestServer(t)
		s.users.err = domain.NewUnauthorizedError("invalid email or password")
		body := map[string]interface{}{"email": "ana@example.com", "password": "wrong"}
		w := s.do(http.MethodPost, "/api/v1/users/login", body, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/users/stats", nil, true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"bookingsCount":2`)
	})

	t.Run("me requires token", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(http.MethodGet, "/api/v1/users/me", nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("delete blocked", func(t *testing.T) {
		s := newTestServer(t)
		s.users.err = domain.NewConflictError("account has bookings awaiting payment")
		w := s.do(http.MethodDelete, "/api/v1/users/me", nil, true)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestFavoriteHandler_Toggle(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/favorites/" + uuid.NewString()

	w := s.do(http.MethodPost, path, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Property added to favorites", decode(t, w).Message)

	w = s.do(http.MethodPost, path, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Property removed from favorites", decode(t, w).Message)

	w = s.do(http.MethodGet, path+"/status", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_favorite":false`)
}

func TestFavoriteHandler_UnknownProperty(t *testing.T) {
	s := newTestServer(t)
	s.favorites.err = domain.NewNotFoundError("property", "x")

	w := s.do(http.MethodPost, "/api/v1/favorites/"+uuid.NewString(), nil, true)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
