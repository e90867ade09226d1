package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// User is an account holder who can list properties and make bookings.
type User struct {
	id           uuid.UUID
	name         string
	email        string
	username     string
	passwordHash string
	avatar       string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates an account. The username defaults to the local part of the email.
func NewUser(name, email, passwordHash, avatar string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return nil, domain.NewValidationError("a valid email is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name is required")
	}

	now := time.Now().UTC()
	return &User{
		id:           uuid.New(),
		name:         strings.TrimSpace(name),
		email:        email,
		username:     local,
		passwordHash: passwordHash,
		avatar:       avatar,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Name() string         { return u.name }
func (u *User) Email() string        { return u.email }
func (u *User) Username() string     { return u.username }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) Avatar() string       { return u.avatar }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// UpdateProfile changes the name and username. Nil leaves a field untouched.
func (u *User) UpdateProfile(name, username *string) error {
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return domain.NewValidationError("name must not be empty")
		}
		u.name = strings.TrimSpace(*name)
	}
	if username != nil {
		if strings.TrimSpace(*username) == "" {
			return domain.NewValidationError("username must not be empty")
		}
		u.username = strings.TrimSpace(*username)
	}
	u.updatedAt = time.Now().UTC()
	return nil
}

// Reconstitute rebuilds a User from persisted data.
func Reconstitute(id uuid.UUID, name, email, username, passwordHash, avatar string, createdAt, updatedAt time.Time) *User {
	return &User{
		id: id, name: name, email: email, username: username,
		passwordHash: passwordHash, avatar: avatar,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}
