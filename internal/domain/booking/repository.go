package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Booking aggregates.
type Repository interface {
	// FindByID retrieves a booking by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDForUpdate retrieves a booking and locks its row until the enclosing transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByPaymentIntentID retrieves the booking backed by a provider payment intent.
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Booking, error)

	// FindByUserID retrieves a user's bookings, newest first, with the total count.
	FindByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*Booking, int64, error)

	// CountByUserID counts all bookings a user has made.
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// CountActiveByPropertyID counts non-cancelled bookings referencing a property.
	CountActiveByPropertyID(ctx context.Context, propertyID uuid.UUID) (int64, error)

	// CountPendingPaymentByUserID counts a user's bookings whose payment is still pending.
	CountPendingPaymentByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// FindOverlapping returns admitted bookings of the property whose range overlaps
	// [checkIn, checkOut] inclusively, skipping excludeID when set.
	FindOverlapping(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time, excludeID *uuid.UUID) ([]*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error

	// ApplyPaymentTransition assigns a payment transition to the non-terminal booking backed by
	// paymentIntentID in one statement. It reports whether a row was changed.
	ApplyPaymentTransition(ctx context.Context, paymentIntentID string, t Transition) (bool, error)

	// LockProperty takes a row lock on the property for the rest of the transaction.
	LockProperty(ctx context.Context, propertyID uuid.UUID) error

	// Transaction runs fn with a repository bound to a single database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}
