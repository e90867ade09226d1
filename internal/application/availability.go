package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/domain/booking"
)

// AvailabilityChecker decides whether a property is free for an inclusive date range.
type AvailabilityChecker struct{}

// NewAvailabilityChecker creates a new AvailabilityChecker.
func NewAvailabilityChecker() *AvailabilityChecker {
	return &AvailabilityChecker{}
}

// IsAvailable reports whether no admitted booking other than excludeID overlaps
// [checkIn, checkOut]. It only reads; callers that go on to write must hold the
// property lock on repo for the answer to stay true.
func (a *AvailabilityChecker) IsAvailable(
	ctx context.Context,
	repo booking.Repository,
	propertyID uuid.UUID,
	checkIn, checkOut time.Time,
	excludeID *uuid.UUID,
) (bool, error) {
	overlapping, err := repo.FindOverlapping(ctx, propertyID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	for _, b := range overlapping {
		if excludeID != nil && b.ID() == *excludeID {
			continue
		}
		if b.IsAdmitted() && b.Overlaps(checkIn, checkOut) {
			return false, nil
		}
	}
	return true, nil
}
