package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stayhub/service-rental/internal/common/domain"
	bookingDomain "github.com/stayhub/service-rental/internal/domain/booking"
	propertyDomain "github.com/stayhub/service-rental/internal/domain/property"
)

// PropertyModel is the GORM model for the properties table.
type PropertyModel struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Name           string                      `gorm:"type:varchar(255);not null"`
	Description    string                      `gorm:"type:text"`
	PricePerNight  float64                     `gorm:"type:numeric(12,2);not null"`
	Address        string                      `gorm:"type:varchar(255)"`
	City           string                      `gorm:"type:varchar(120);index"`
	Country        string                      `gorm:"type:varchar(120)"`
	Amenities      string                      `gorm:"type:text"`
	Capacity       int                         `gorm:"not null"`
	Images         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Longitude      float64
	Latitude       float64
	LongitudeDelta float64
	LatitudeDelta  float64
	CreatedAt      time.Time `gorm:"type:timestamptz;not null;default:now();index"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (PropertyModel) TableName() string { return "properties" }

// GormPropertyRepository implements property.Repository using GORM.
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository.
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID returns a property by ID.
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, err
	}
	return toPropertyDomain(&model), nil
}

// FindByIDForUpdate returns a property and holds a row lock on it for the rest of the transaction.
func (r *GormPropertyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, err
	}
	return toPropertyDomain(&model), nil
}

// FindByIDs returns the properties among ids, newest first.
func (r *GormPropertyRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*propertyDomain.Property, error) {
	if len(ids) == 0 {
		return []*propertyDomain.Property{}, nil
	}
	var models []PropertyModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return toPropertyDomains(models), nil
}

// List returns a page of properties, newest first.
func (r *GormPropertyRepository) List(ctx context.Context, page, pageSize int) ([]*propertyDomain.Property, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PropertyModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []PropertyModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toPropertyDomains(models), total, nil
}

// SearchByCity matches the city case-insensitively by substring.
func (r *GormPropertyRepository) SearchByCity(ctx context.Context, city string) ([]*propertyDomain.Property, error) {
	var models []PropertyModel
	pattern := "%" + escapeLike(city) + "%"
	if err := r.db.WithContext(ctx).Where("city ILIKE ?", pattern).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return toPropertyDomains(models), nil
}

// Save persists a new property.
func (r *GormPropertyRepository) Save(ctx context.Context, p *propertyDomain.Property) error {
	return r.db.WithContext(ctx).Create(toPropertyModel(p)).Error
}

// Update writes every field of the property.
func (r *GormPropertyRepository) Update(ctx context.Context, p *propertyDomain.Property) error {
	model := toPropertyModel(p)
	result := r.db.WithContext(ctx).Model(&PropertyModel{}).
		Where("id = ?", model.ID).
		Select("*").Omit("id", "owner_id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Property", p.ID().String())
	}
	return nil
}

// Delete removes a property and the favorites pointing at it.
func (r *GormPropertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&FavoriteModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&PropertyModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Property", id.String())
		}
		return nil
	})
}

// CountActiveBookings counts non-cancelled bookings referencing the property.
func (r *GormPropertyRepository) CountActiveBookings(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("property_id = ? AND status <> ?", id, string(bookingDomain.StatusCancelled)).
		Count(&count).Error
	return count, err
}

// Transaction runs fn with a repository bound to a single database transaction.
func (r *GormPropertyRepository) Transaction(ctx context.Context, fn func(repo propertyDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormPropertyRepository{db: tx})
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toPropertyDomains(models []PropertyModel) []*propertyDomain.Property {
	out := make([]*propertyDomain.Property, len(models))
	for i := range models {
		out[i] = toPropertyDomain(&models[i])
	}
	return out
}

func toPropertyModel(p *propertyDomain.Property) *PropertyModel {
	d, l := p.Details(), p.Location()
	return &PropertyModel{
		ID:             p.ID(),
		OwnerID:        p.OwnerID(),
		Name:           d.Name,
		Description:    d.Description,
		PricePerNight:  p.PricePerNight(),
		Address:        d.Address,
		City:           d.City,
		Country:        d.Country,
		Amenities:      d.Amenities,
		Capacity:       d.Capacity,
		Images:         datatypes.JSONSlice[string](d.Images),
		Longitude:      l.Longitude,
		Latitude:       l.Latitude,
		LongitudeDelta: l.LongitudeDelta,
		LatitudeDelta:  l.LatitudeDelta,
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}

func toPropertyDomain(m *PropertyModel) *propertyDomain.Property {
	return propertyDomain.Reconstitute(
		m.ID, m.OwnerID,
		propertyDomain.Details{
			Name:        m.Name,
			Description: m.Description,
			Address:     m.Address,
			City:        m.City,
			Country:     m.Country,
			Amenities:   m.Amenities,
			Capacity:    m.Capacity,
			Images:      []string(m.Images),
		},
		propertyDomain.Location{
			Longitude:      m.Longitude,
			Latitude:       m.Latitude,
			LongitudeDelta: m.LongitudeDelta,
			LatitudeDelta:  m.LatitudeDelta,
		},
		m.PricePerNight,
		m.CreatedAt, m.UpdatedAt,
	)
}
