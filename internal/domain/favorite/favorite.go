package favorite

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Favorite records that a user saved a property.
type Favorite struct {
	UserID     uuid.UUID
	PropertyID uuid.UUID
	CreatedAt  time.Time
}

// Repository defines persistence operations for favorites.
type Repository interface {
	// Toggle adds the favorite when absent and removes it when present.
	// It reports whether the property is a favorite afterwards.
	Toggle(ctx context.Context, userID, propertyID uuid.UUID) (bool, error)
	Exists(ctx context.Context, userID, propertyID uuid.UUID) (bool, error)
	// FavoritedAmong returns which of propertyIDs the user has favorited, in one query.
	FavoritedAmong(ctx context.Context, userID uuid.UUID, propertyIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListPropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
