package property

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// Location is the map position and viewport of a listing.
type Location struct {
	Longitude      float64
	Latitude       float64
	LongitudeDelta float64
	LatitudeDelta  float64
}

// Details are the descriptive fields of a listing.
type Details struct {
	Name        string
	Description string
	Address     string
	City        string
	Country     string
	Amenities   string
	Capacity    int
	Images      []string
}

// Property is the aggregate root for a rentable listing.
type Property struct {
	id            uuid.UUID
	ownerID       uuid.UUID
	details       Details
	location      Location
	pricePerNight float64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewProperty creates a listing owned by ownerID.
func NewProperty(ownerID uuid.UUID, details Details, location Location, pricePerNight float64) (*Property, error) {
	if strings.TrimSpace(details.Name) == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if pricePerNight <= 0 {
		return nil, domain.NewValidationError("price_per_night must be positive")
	}
	if details.Capacity <= 0 {
		return nil, domain.NewValidationError("capacity must be positive")
	}

	now := time.Now().UTC()
	return &Property{
		id:            uuid.New(),
		ownerID:       ownerID,
		details:       details,
		location:      location,
		pricePerNight: pricePerNight,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func (p *Property) ID() uuid.UUID          { return p.id }
func (p *Property) OwnerID() uuid.UUID     { return p.ownerID }
func (p *Property) Details() Details       { return p.details }
func (p *Property) Location() Location     { return p.location }
func (p *Property) PricePerNight() float64 { return p.pricePerNight }
func (p *Property) CreatedAt() time.Time   { return p.createdAt }
func (p *Property) UpdatedAt() time.Time   { return p.updatedAt }

// IsOwnedBy reports whether userID listed the property.
func (p *Property) IsOwnedBy(userID uuid.UUID) bool {
	return p.ownerID == userID
}

// Patch lists the fields an owner may change. Nil fields are left untouched.
type Patch struct {
	Name           *string
	Description    *string
	PricePerNight  *float64
	Address        *string
	City           *string
	Country        *string
	Amenities      *string
	Capacity       *int
	Images         []string
	Longitude      *float64
	Latitude       *float64
	LongitudeDelta *float64
	LatitudeDelta  *float64
}

// ChangesPrice reports whether applying the patch would change the nightly price.
func (p *Property) ChangesPrice(patch Patch) bool {
	return patch.PricePerNight != nil && *patch.PricePerNight != p.pricePerNight
}

// Apply merges the patch field by field.
func (p *Property) Apply(patch Patch) error {
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return domain.NewValidationError("name must not be empty")
		}
		p.details.Name = *patch.Name
	}
	if patch.PricePerNight != nil {
		if *patch.PricePerNight <= 0 {
			return domain.NewValidationError("price_per_night must be positive")
		}
		p.pricePerNight = *patch.PricePerNight
	}
	if patch.Capacity != nil {
		if *patch.Capacity <= 0 {
			return domain.NewValidationError("capacity must be positive")
		}
		p.details.Capacity = *patch.Capacity
	}
	setString(&p.details.Description, patch.Description)
	setString(&p.details.Address, patch.Address)
	setString(&p.details.City, patch.City)
	setString(&p.details.Country, patch.Country)
	setString(&p.details.Amenities, patch.Amenities)
	if patch.Images != nil {
		p.details.Images = patch.Images
	}
	setFloat(&p.location.Longitude, patch.Longitude)
	setFloat(&p.location.Latitude, patch.Latitude)
	setFloat(&p.location.LongitudeDelta, patch.LongitudeDelta)
	setFloat(&p.location.LatitudeDelta, patch.LatitudeDelta)

	p.updatedAt = time.Now().UTC()
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Reconstitute rebuilds a Property from persisted data.
func Reconstitute(id, ownerID uuid.UUID, details Details, location Location, pricePerNight float64, createdAt, updatedAt time.Time) *Property {
	return &Property{
		id:            id,
		ownerID:       ownerID,
		details:       details,
		location:      location,
		pricePerNight: pricePerNight,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
