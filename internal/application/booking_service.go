package application

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/adapter"
	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/domain/booking"
	"github.com/stayhub/service-rental/internal/domain/property"
	"github.com/stayhub/service-rental/internal/domain/user"
	"github.com/stayhub/service-rental/internal/events"
	"github.com/stayhub/service-rental/internal/saga"
)

// CreateBookingRequest is the DTO for reserving a stay.
type CreateBookingRequest struct {
	PropertyID      uuid.UUID `json:"property_id" binding:"required"`
	CheckIn         string    `json:"check_in" binding:"required"`
	CheckOut        string    `json:"check_out" binding:"required"`
	GuestCount      int       `json:"guest_count" binding:"required,gt=0"`
	SpecialRequests string    `json:"special_requests"`
}

// UpdateBookingRequest is the DTO for editing a booking. Only these fields can change;
// nil fields are left as they are.
type UpdateBookingRequest struct {
	CheckIn         *string `json:"check_in"`
	CheckOut        *string `json:"check_out"`
	GuestCount      *int    `json:"guest_count" binding:"omitempty,gt=0"`
	SpecialRequests *string `json:"special_requests"`
}

// BookingDTO is the API response DTO for booking data.
type BookingDTO struct {
	ID              uuid.UUID    `json:"id"`
	PropertyID      uuid.UUID    `json:"property_id"`
	UserID          uuid.UUID    `json:"user_id"`
	CheckIn         string       `json:"check_in"`
	CheckOut        string       `json:"check_out"`
	Nights          int          `json:"nights"`
	GuestCount      int          `json:"guest_count"`
	SpecialRequests string       `json:"special_requests,omitempty"`
	TotalPrice      float64      `json:"total_price"`
	Status          string       `json:"status"`
	PaymentStatus   string       `json:"payment_status"`
	PaymentIntentID string       `json:"payment_intent_id,omitempty"`
	Property        *PropertyDTO `json:"property,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CheckoutDTO is returned after a booking is created; the client finishes payment with it.
type CheckoutDTO struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	ClientSecret  string     `json:"clientSecret"`
	EphemeralKey  string     `json:"ephemeralKey"`
	CustomerID    string     `json:"customerId"`
	PaymentIntent string     `json:"paymentIntent"`
	Booking       BookingDTO `json:"booking"`
}

// BookingListDTO is one page of a user's bookings.
type BookingListDTO struct {
	Bookings   []BookingDTO `json:"bookings"`
	TotalCount int64        `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}

// BookingOptions holds the payment settings of the booking service.
type BookingOptions struct {
	Currency       string
	GatewayTimeout time.Duration
}

// BookingService is the application service that orchestrates the booking lifecycle.
type BookingService struct {
	repo         booking.Repository
	properties   property.Repository
	users        user.Repository
	gateway      adapter.PaymentGateway
	publisher    events.Publisher
	availability *AvailabilityChecker
	opts         BookingOptions
	logger       *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo booking.Repository,
	properties property.Repository,
	users user.Repository,
	gateway adapter.PaymentGateway,
	publisher events.Publisher,
	opts BookingOptions,
	logger *zap.Logger,
) *BookingService {
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	if opts.Currency == "" {
		opts.Currency = "inr"
	}
	return &BookingService{
		repo:         repo,
		properties:   properties,
		users:        users,
		gateway:      gateway,
		publisher:    publisher,
		availability: NewAvailabilityChecker(),
		opts:         opts,
		logger:       logger,
	}
}

// CreateBooking reserves the range for the caller and opens a payment intent for it.
// The intent is cancelled again when the booking row cannot be written.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*CheckoutDTO, error) {
	checkIn, err := ParseDate("check_in", req.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := ParseDate("check_out", req.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := booking.ValidateRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	prop, err := s.properties.FindByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	guest, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	nights := booking.Nights(checkIn, checkOut)
	totalPrice := booking.TotalPrice(nights, prop.PricePerNight())

	var (
		intent  *adapter.Intent
		created *booking.Booking
	)

	sg := saga.NewSaga("create_booking", s.logger)

	// Step 1: cheap availability pre-check, no lock held
	sg.AddStep(saga.SagaStep{
		Name: "check_availability",
		Execute: func(ctx context.Context) error {
			return s.ensureAvailable(ctx, s.repo, prop.ID(), checkIn, checkOut, nil)
		},
	})

	// Step 2: create customer, ephemeral key and payment intent
	sg.AddStep(saga.SagaStep{
		Name: "create_payment_intent",
		Execute: func(ctx context.Context) error {
			gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
			defer cancel()

			intent, err = s.gateway.CreateIntent(gctx,
				booking.ToMinorUnits(totalPrice),
				s.opts.Currency,
				adapter.Customer{Name: guest.Name(), Email: guest.Email()},
				map[string]string{
					"property_id": prop.ID().String(),
					"user_id":     userID.String(),
					"nights":      strconv.Itoa(nights),
				},
			)
			return asGatewayError("failed to process payment setup", err)
		},
		Compensate: func(ctx context.Context) error {
			gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
			defer cancel()
			return s.gateway.CancelIntent(gctx, intent.ID)
		},
	})

	// Step 3: persist under the property lock with the authoritative re-check
	sg.AddStep(saga.SagaStep{
		Name: "persist_booking",
		Execute: func(ctx context.Context) error {
			b, err := booking.NewBooking(prop.ID(), userID, checkIn, checkOut, req.GuestCount, req.SpecialRequests, totalPrice, intent.ID)
			if err != nil {
				return err
			}
			err = s.repo.Transaction(ctx, func(tx booking.Repository) error {
				if err := tx.LockProperty(ctx, prop.ID()); err != nil {
					return err
				}
				// The intent amount was computed from the unlocked read.
				locked, err := s.properties.FindByID(ctx, prop.ID())
				if err != nil {
					return err
				}
				if locked.PricePerNight() != prop.PricePerNight() {
					return domain.NewConflictError("property price changed, please retry")
				}
				if err := s.ensureAvailable(ctx, tx, prop.ID(), checkIn, checkOut, nil); err != nil {
					return err
				}
				return tx.Save(ctx, b)
			})
			if err != nil {
				return err
			}
			created = b
			return nil
		},
	})

	if err := sg.Execute(ctx); err != nil {
		s.logger.Warn("booking not created",
			zap.String("property_id", prop.ID().String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", created.ID().String()),
		zap.String("property_id", prop.ID().String()),
		zap.String("payment_intent_id", intent.ID),
		zap.Float64("total_price", totalPrice),
	)
	s.publish(ctx, events.BookingCreated, created)

	dto := toBookingDTO(created)
	dto.Property = toPropertyDTOPtr(prop, false)
	return &CheckoutDTO{
		BookingID:     created.ID(),
		ClientSecret:  intent.ClientSecret,
		EphemeralKey:  intent.EphemeralKey,
		CustomerID:    intent.CustomerID,
		PaymentIntent: intent.ClientSecret,
		Booking:       dto,
	}, nil
}

// ListMyBookings returns one page of the caller's bookings, newest first.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uuid.UUID, page, pageSize int) (*BookingListDTO, error) {
	page, pageSize = NormalizePage(page, pageSize)

	bookings, total, err := s.repo.FindByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}

	propertyIDs := make([]uuid.UUID, 0, len(bookings))
	seen := make(map[uuid.UUID]bool, len(bookings))
	for _, b := range bookings {
		if !seen[b.PropertyID()] {
			seen[b.PropertyID()] = true
			propertyIDs = append(propertyIDs, b.PropertyID())
		}
	}
	props, err := s.properties.FindByIDs(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*property.Property, len(props))
	for _, p := range props {
		byID[p.ID()] = p
	}

	dtos := make([]BookingDTO, 0, len(bookings))
	for _, b := range bookings {
		dto := toBookingDTO(b)
		if p, ok := byID[b.PropertyID()]; ok {
			dto.Property = toPropertyDTOPtr(p, false)
		}
		dtos = append(dtos, dto)
	}

	return &BookingListDTO{
		Bookings:   dtos,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// GetBooking returns a booking owned by the caller.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsOwnedBy(userID) {
		return nil, domain.NewForbiddenError("not authorized to view this booking")
	}

	dto := toBookingDTO(b)
	if p, err := s.properties.FindByID(ctx, b.PropertyID()); err == nil {
		dto.Property = toPropertyDTOPtr(p, false)
	} else if !domain.IsNotFound(err) {
		return nil, err
	}
	return &dto, nil
}

// UpdateBooking edits dates and details. Date changes are checked for availability and
// repriced; the gateway amount is changed inside the same transaction so the stored
// price and the intent amount never diverge.
func (s *BookingService) UpdateBooking(ctx context.Context, userID, bookingID uuid.UUID, req UpdateBookingRequest) (*BookingDTO, error) {
	var (
		updated        *booking.Booking
		intentID       string
		oldAmount      int64
		gatewayUpdated bool
	)

	err := s.repo.Transaction(ctx, func(tx booking.Repository) error {
		current, err := tx.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userID) {
			return domain.NewForbiddenError("not authorized to update this booking")
		}
		if current.Status().IsTerminal() {
			return domain.NewImmutableStateError("cannot modify completed or cancelled bookings")
		}

		if err := tx.LockProperty(ctx, current.PropertyID()); err != nil {
			return err
		}
		b, err := tx.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status().IsTerminal() {
			return domain.NewImmutableStateError("cannot modify completed or cancelled bookings")
		}

		oldPrice := b.TotalPrice()
		if req.CheckIn != nil || req.CheckOut != nil {
			checkIn, checkOut := b.CheckIn(), b.CheckOut()
			if req.CheckIn != nil {
				if checkIn, err = ParseDate("check_in", *req.CheckIn); err != nil {
					return err
				}
			}
			if req.CheckOut != nil {
				if checkOut, err = ParseDate("check_out", *req.CheckOut); err != nil {
					return err
				}
			}
			if err := booking.ValidateRange(checkIn, checkOut); err != nil {
				return err
			}
			if err := s.ensureAvailable(ctx, tx, b.PropertyID(), checkIn, checkOut, &bookingID); err != nil {
				return err
			}

			prop, err := s.properties.FindByID(ctx, b.PropertyID())
			if err != nil {
				return err
			}
			newPrice := booking.TotalPrice(booking.Nights(checkIn, checkOut), prop.PricePerNight())
			if err := b.Reschedule(checkIn, checkOut, newPrice); err != nil {
				return err
			}
		}

		if req.GuestCount != nil || req.SpecialRequests != nil {
			if err := b.UpdateDetails(req.GuestCount, req.SpecialRequests); err != nil {
				return err
			}
		}

		oldAmount = booking.ToMinorUnits(oldPrice)
		newAmount := booking.ToMinorUnits(b.TotalPrice())
		if newAmount != oldAmount {
			if b.PaymentIntentID() == "" {
				return domain.NewValidationError("payment intent not found")
			}
			if err := s.updateIntentAmount(ctx, b.PaymentIntentID(), newAmount); err != nil {
				return err
			}
			intentID = b.PaymentIntentID()
			gatewayUpdated = true
		}

		b.IncrementVersion()
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		if gatewayUpdated {
			s.restoreIntentAmount(ctx, bookingID, intentID, oldAmount)
		}
		return nil, err
	}

	s.logger.Info("booking updated",
		zap.String("booking_id", bookingID.String()),
		zap.Float64("total_price", updated.TotalPrice()),
	)
	s.publish(ctx, events.BookingUpdated, updated)

	dto := toBookingDTO(updated)
	return &dto, nil
}

// CancelBooking soft-deletes a booking, cancelling its intent first when payment is
// still pending. A gateway failure leaves the booking as it was.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) error {
	var cancelled *booking.Booking

	err := s.repo.Transaction(ctx, func(tx booking.Repository) error {
		b, err := tx.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsOwnedBy(userID) {
			return domain.NewForbiddenError("not authorized to delete this booking")
		}
		if b.Status() == booking.StatusCompleted {
			return domain.NewImmutableStateError("cannot delete completed bookings")
		}

		if b.NeedsGatewayCancel() {
			gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
			err := s.gateway.CancelIntent(gctx, b.PaymentIntentID())
			cancel()
			if err != nil {
				return asGatewayError("failed to cancel booking", err)
			}
		}

		if err := b.Cancel(); err != nil {
			return err
		}
		b.IncrementVersion()
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("booking cancelled", zap.String("booking_id", bookingID.String()))
	s.publish(ctx, events.BookingCancelled, cancelled)
	return nil
}

func (s *BookingService) ensureAvailable(ctx context.Context, repo booking.Repository, propertyID uuid.UUID, checkIn, checkOut time.Time, excludeID *uuid.UUID) error {
	available, err := s.availability.IsAvailable(ctx, repo, propertyID, checkIn, checkOut, excludeID)
	if err != nil {
		return err
	}
	if !available {
		return domain.NewConflictError("property is not available for these dates")
	}
	return nil
}

func (s *BookingService) updateIntentAmount(ctx context.Context, intentID string, amountMinor int64) error {
	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()
	return asGatewayError("failed to update payment amount", s.gateway.UpdateIntentAmount(gctx, intentID, amountMinor))
}

// restoreIntentAmount puts the gateway amount back after the row write was rolled back.
func (s *BookingService) restoreIntentAmount(ctx context.Context, bookingID uuid.UUID, intentID string, amountMinor int64) {
	if err := s.updateIntentAmount(context.WithoutCancel(ctx), intentID, amountMinor); err != nil {
		s.logger.Error("failed to restore payment intent amount",
			zap.String("booking_id", bookingID.String()),
			zap.Int64("amount_minor", amountMinor),
			zap.Error(err),
		)
	}
}

// publish reports a committed change. Delivery failures are logged only.
func (s *BookingService) publish(ctx context.Context, eventType string, b *booking.Booking) {
	if err := s.publisher.Publish(ctx, eventType, events.NewBookingEvent(b)); err != nil {
		s.logger.Error("failed to publish booking event",
			zap.String("type", eventType),
			zap.String("booking_id", b.ID().String()),
			zap.Error(err),
		)
	}
}

// asGatewayError classifies a provider error as retryable GatewayFailure.
func asGatewayError(message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return domain.NewGatewayError(message, err)
}

func toBookingDTO(b *booking.Booking) BookingDTO {
	return BookingDTO{
		ID:              b.ID(),
		PropertyID:      b.PropertyID(),
		UserID:          b.UserID(),
		CheckIn:         b.CheckIn().Format(time.DateOnly),
		CheckOut:        b.CheckOut().Format(time.DateOnly),
		Nights:          booking.Nights(b.CheckIn(), b.CheckOut()),
		GuestCount:      b.GuestCount(),
		SpecialRequests: b.SpecialRequests(),
		TotalPrice:      b.TotalPrice(),
		Status:          string(b.Status()),
		PaymentStatus:   string(b.PaymentStatus()),
		PaymentIntentID: b.PaymentIntentID(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
}
