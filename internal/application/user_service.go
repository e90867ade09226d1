package application

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/common/auth"
	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/domain/booking"
	"github.com/stayhub/service-rental/internal/domain/favorite"
	"github.com/stayhub/service-rental/internal/domain/user"
)

var avatars = []string{
	"https://images.unsplash.com/photo-1557682224-5b8590cd9ec5",
	"https://images.unsplash.com/photo-1618005182384-a83a8bd57fbe",
	"https://images.unsplash.com/photo-1618556450994-a6a128ef0d9d",
	"https://images.unsplash.com/photo-1604076850742-4c7221f3101b",
}

// RegisterRequest is the DTO for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the DTO for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest lists the profile fields a user may change.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
}

// UserDTO is the public view of an account. The password hash never leaves the service.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginDTO carries the issued token with the user.
type LoginDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserStatsDTO adds activity counts to the profile.
type UserStatsDTO struct {
	UserDTO
	FavoritePropertiesCount int64 `json:"favoritePropertiesCount"`
	BookingsCount           int64 `json:"bookingsCount"`
}

// UserService is the application service for accounts.
type UserService struct {
	repo       user.Repository
	bookings   booking.Repository
	favorites  favorite.Repository
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	repo user.Repository,
	bookings booking.Repository,
	favorites favorite.Repository,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		repo:       repo,
		bookings:   bookings,
		favorites:  favorites,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register creates an account with a random avatar.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*UserDTO, error) {
	if len(req.Password) < 6 {
		return nil, domain.NewValidationError("password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := user.NewUser(req.Name, req.Email, hash, avatars[rand.IntN(len(avatars))])
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID().String()))
	dto := toUserDTO(u)
	return &dto, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong passwords
// fail the same way.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*LoginDTO, error) {
	u, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash()) {
		return nil, domain.NewUnauthorizedError("invalid credentials")
	}

	token, err := s.jwtManager.GenerateToken(u.ID(), u.Email())
	if err != nil {
		return nil, err
	}
	return &LoginDTO{Token: token, User: toUserDTO(u)}, nil
}

// GetProfile returns the caller's account.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(u)
	return &dto, nil
}

// GetStats returns the profile with favorite and booking counts.
func (s *UserService) GetStats(ctx context.Context, userID uuid.UUID) (*UserStatsDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favorites.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStatsDTO{
		UserDTO:                 toUserDTO(u),
		FavoritePropertiesCount: favorites,
		BookingsCount:           bookings,
	}, nil
}

// UpdateProfile changes the name and username.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.UpdateProfile(req.Name, req.Username); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	dto := toUserDTO(u)
	return &dto, nil
}

// DeleteAccount removes the caller. Accounts with bookings awaiting payment are kept
// so their intents stay reconcilable.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	pending, err := s.bookings.CountPendingPaymentByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return domain.NewConflictError("cancel bookings awaiting payment before deleting the account")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", userID.String()))
	return nil
}

func toUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		Username:  u.Username(),
		Avatar:    u.Avatar(),
		CreatedAt: u.CreatedAt(),
	}
}
