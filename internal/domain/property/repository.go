package property

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for properties.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	// FindByIDForUpdate reads the property and locks its row until the enclosing transaction ends.
	// Booking writers take the same lock, so a locked property cannot gain bookings.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Property, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Property, error)
	// List returns properties newest first with the total count.
	List(ctx context.Context, page, pageSize int) ([]*Property, int64, error)
	// SearchByCity matches the city case-insensitively by substring.
	SearchByCity(ctx context.Context, city string) ([]*Property, error)
	Save(ctx context.Context, p *Property) error
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountActiveBookings counts non-cancelled bookings referencing the property.
	CountActiveBookings(ctx context.Context, id uuid.UUID) (int64, error)
	// Transaction runs fn with a repository bound to a single database transaction.
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}
