package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPaymentFailed  Status = "payment_failed"
	StatusRequiresAction Status = "requires_action"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

// IsTerminal reports whether no further user edits are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PaymentStatus mirrors the state of the provider-side payment intent.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Booking is the aggregate root for a date-ranged stay at a property.
type Booking struct {
	id              uuid.UUID
	propertyID      uuid.UUID
	userID          uuid.UUID
	checkIn         time.Time
	checkOut        time.Time
	guestCount      int
	specialRequests string
	totalPrice      float64
	status          Status
	paymentStatus   PaymentStatus
	paymentIntentID string
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
}

// NewBooking creates a pending booking backed by an already created payment intent.
func NewBooking(
	propertyID, userID uuid.UUID,
	checkIn, checkOut time.Time,
	guestCount int,
	specialRequests string,
	totalPrice float64,
	paymentIntentID string,
) (*Booking, error) {
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return nil, err
	}
	if guestCount <= 0 {
		return nil, domain.NewValidationError("guest_count must be positive")
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		propertyID:      propertyID,
		userID:          userID,
		checkIn:         checkIn.UTC(),
		checkOut:        checkOut.UTC(),
		guestCount:      guestCount,
		specialRequests: specialRequests,
		totalPrice:      totalPrice,
		status:          StatusPending,
		paymentStatus:   PaymentPending,
		paymentIntentID: paymentIntentID,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) PropertyID() uuid.UUID        { return b.propertyID }
func (b *Booking) UserID() uuid.UUID            { return b.userID }
func (b *Booking) CheckIn() time.Time           { return b.checkIn }
func (b *Booking) CheckOut() time.Time          { return b.checkOut }
func (b *Booking) GuestCount() int              { return b.guestCount }
func (b *Booking) SpecialRequests() string      { return b.specialRequests }
func (b *Booking) TotalPrice() float64          { return b.totalPrice }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }
func (b *Booking) PaymentIntentID() string      { return b.paymentIntentID }
func (b *Booking) Version() int64               { return b.version }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }

// IsOwnedBy reports whether userID made the booking.
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.userID == userID
}

// IsAdmitted reports whether the booking blocks its date range.
func (b *Booking) IsAdmitted() bool {
	return b.status != StatusCancelled && b.paymentStatus != PaymentFailed
}

// Overlaps applies the inclusive range test: a check-out on day N conflicts with a check-in on day N.
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return !b.checkIn.After(checkOut) && !b.checkOut.Before(checkIn)
}

// --- Behavior / State Transitions ---

// Reschedule moves the stay to new dates at a recomputed price.
func (b *Booking) Reschedule(checkIn, checkOut time.Time, totalPrice float64) error {
	if b.status.IsTerminal() {
		return domain.NewImmutableStateError("cannot modify completed or cancelled bookings")
	}
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return err
	}
	b.checkIn = checkIn.UTC()
	b.checkOut = checkOut.UTC()
	b.totalPrice = totalPrice
	b.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDetails changes the fields that do not affect price. Nil leaves a field untouched.
func (b *Booking) UpdateDetails(guestCount *int, specialRequests *string) error {
	if b.status.IsTerminal() {
		return domain.NewImmutableStateError("cannot modify completed or cancelled bookings")
	}
	if guestCount != nil {
		if *guestCount <= 0 {
			return domain.NewValidationError("guest_count must be positive")
		}
		b.guestCount = *guestCount
	}
	if specialRequests != nil {
		b.specialRequests = *specialRequests
	}
	b.updatedAt = time.Now().UTC()
	return nil
}

// NeedsGatewayCancel reports whether cancelling must first cancel the provider intent.
func (b *Booking) NeedsGatewayCancel() bool {
	return b.paymentIntentID != "" && b.paymentStatus == PaymentPending
}

// Cancel soft-deletes the booking. Completed bookings cannot be cancelled.
func (b *Booking) Cancel() error {
	if b.status == StatusCompleted {
		return domain.NewImmutableStateError("cannot cancel completed bookings")
	}
	b.status = StatusCancelled
	b.paymentStatus = PaymentCancelled
	b.updatedAt = time.Now().UTC()
	return nil
}

// Complete marks a confirmed stay as finished.
func (b *Booking) Complete() error {
	if b.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	b.status = StatusCompleted
	b.updatedAt = time.Now().UTC()
	return nil
}

// ApplyPayment applies a provider-driven transition. Terminal bookings are left untouched
// and false is returned.
func (b *Booking) ApplyPayment(t Transition) bool {
	if b.status.IsTerminal() {
		return false
	}
	b.status = t.Status
	if t.PaymentStatus != nil {
		b.paymentStatus = *t.PaymentStatus
	}
	b.updatedAt = time.Now().UTC()
	return true
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id, propertyID, userID uuid.UUID,
	checkIn, checkOut time.Time,
	guestCount int,
	specialRequests string,
	totalPrice float64,
	status Status,
	paymentStatus PaymentStatus,
	paymentIntentID string,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		propertyID:      propertyID,
		userID:          userID,
		checkIn:         checkIn,
		checkOut:        checkOut,
		guestCount:      guestCount,
		specialRequests: specialRequests,
		totalPrice:      totalPrice,
		status:          status,
		paymentStatus:   paymentStatus,
		paymentIntentID: paymentIntentID,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}
