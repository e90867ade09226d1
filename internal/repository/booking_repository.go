package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stayhub/service-rental/internal/common/domain"
	bookingDomain "github.com/stayhub/service-rental/internal/domain/booking"
)

// BookingModel is the GORM persistence model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID      uuid.UUID `gorm:"type:uuid;not null;index:idx_bookings_property_range,priority:1"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index"`
	CheckIn         time.Time `gorm:"type:timestamptz;not null;index:idx_bookings_property_range,priority:2"`
	CheckOut        time.Time `gorm:"type:timestamptz;not null;check:chk_bookings_range,check_out >= check_in"`
	GuestCount      int       `gorm:"not null"`
	SpecialRequests string    `gorm:"type:text"`
	TotalPrice      float64   `gorm:"type:numeric(12,2);not null"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentStatus   string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentIntentID string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string {
	return "bookings"
}

var terminalStatuses = []string{string(bookingDomain.StatusCancelled), string(bookingDomain.StatusCompleted)}

// BookingRepositoryImpl is the GORM-based implementation of booking.Repository.
type BookingRepositoryImpl struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM-based booking repository.
func NewBookingRepository(db *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// FindByID retrieves a booking by its unique ID.
func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id), id.String())
}

// FindByIDForUpdate retrieves a booking with SELECT ... FOR UPDATE.
func (r *BookingRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return r.findOne(q, id.String())
}

// FindByPaymentIntentID retrieves the booking backed by a provider payment intent.
func (r *BookingRepositoryImpl) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID), paymentIntentID)
}

func (r *BookingRepositoryImpl) findOne(q *gorm.DB, key string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", key)
		}
		return nil, err
	}
	return toBookingDomain(&model), nil
}

// FindByUserID retrieves a user's bookings, newest first.
func (r *BookingRepositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []BookingModel
	offset := (page - 1) * pageSize
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toBookingDomains(models), total, nil
}

// CountByUserID counts all bookings a user has made.
func (r *BookingRepositoryImpl) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountActiveByPropertyID counts non-cancelled bookings referencing a property.
func (r *BookingRepositoryImpl) CountActiveByPropertyID(ctx context.Context, propertyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("property_id = ? AND status <> ?", propertyID, string(bookingDomain.StatusCancelled)).
		Count(&count).Error
	return count, err
}

// CountPendingPaymentByUserID counts a user's non-cancelled bookings whose payment is still pending.
func (r *BookingRepositoryImpl) CountPendingPaymentByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("user_id = ? AND payment_status = ? AND status <> ?",
			userID, string(bookingDomain.PaymentPending), string(bookingDomain.StatusCancelled)).
		Count(&count).Error
	return count, err
}

// FindOverlapping returns admitted bookings overlapping [checkIn, checkOut] inclusively.
func (r *BookingRepositoryImpl) FindOverlapping(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time, excludeID *uuid.UUID) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Where("check_in <= ? AND check_out >= ?", checkOut, checkIn).
		Where("NOT (status = ? OR payment_status = ?)",
			string(bookingDomain.StatusCancelled), string(bookingDomain.PaymentFailed))
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var models []BookingModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return toBookingDomains(models), nil
}

// Save persists a new booking.
func (r *BookingRepositoryImpl) Save(ctx context.Context, b *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(b)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking already exists for this payment intent")
		}
		return err
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
// The caller must have called IncrementVersion.
func (r *BookingRepositoryImpl) Update(ctx context.Context, b *bookingDomain.Booking) error {
	model := toBookingModel(b)
	previousVersion := b.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another request")
	}
	return nil
}

// ApplyPaymentTransition assigns the transition in a single UPDATE so concurrent writers cannot
// interleave status and payment status. Cancelled and completed bookings are never touched.
func (r *BookingRepositoryImpl) ApplyPaymentTransition(ctx context.Context, paymentIntentID string, t bookingDomain.Transition) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(t.Status),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	if t.PaymentStatus != nil {
		updates["payment_status"] = string(*t.PaymentStatus)
	}

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("payment_intent_id = ? AND status NOT IN ?", paymentIntentID, terminalStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LockProperty takes SELECT ... FOR UPDATE on the property row, serializing every
// availability check and booking write for that property.
func (r *BookingRepositoryImpl) LockProperty(ctx context.Context, propertyID uuid.UUID) error {
	var model PropertyModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", propertyID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError("Property", propertyID.String())
	}
	return err
}

// Transaction runs fn inside a database transaction.
func (r *BookingRepositoryImpl) Transaction(ctx context.Context, fn func(repo bookingDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BookingRepositoryImpl{db: tx})
	})
}

func toBookingDomains(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toBookingDomain(&models[i])
	}
	return bookings
}

// toBookingDomain maps a BookingModel to the domain Booking aggregate.
func toBookingDomain(m *BookingModel) *bookingDomain.Booking {
	return bookingDomain.Reconstitute(
		m.ID,
		m.PropertyID,
		m.UserID,
		m.CheckIn.UTC(),
		m.CheckOut.UTC(),
		m.GuestCount,
		m.SpecialRequests,
		m.TotalPrice,
		bookingDomain.Status(m.Status),
		bookingDomain.PaymentStatus(m.PaymentStatus),
		m.PaymentIntentID,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// toBookingModel maps a domain Booking aggregate to a BookingModel for persistence.
func toBookingModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:              b.ID(),
		PropertyID:      b.PropertyID(),
		UserID:          b.UserID(),
		CheckIn:         b.CheckIn(),
		CheckOut:        b.CheckOut(),
		GuestCount:      b.GuestCount(),
		SpecialRequests: b.SpecialRequests(),
		TotalPrice:      b.TotalPrice(),
		Status:          string(b.Status()),
		PaymentStatus:   string(b.PaymentStatus()),
		PaymentIntentID: b.PaymentIntentID(),
		Version:         b.Version(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
}
