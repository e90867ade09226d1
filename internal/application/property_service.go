package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/domain/favorite"
	"github.com/stayhub/service-rental/internal/domain/property"
)

// CreatePropertyRequest is the DTO for listing a new property.
type CreatePropertyRequest struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	PricePerNight  float64  `json:"price_per_night" binding:"required,gt=0"`
	Address        string   `json:"address"`
	City           string   `json:"city" binding:"required"`
	Country        string   `json:"country"`
	Amenities      string   `json:"amenities"`
	Capacity       int      `json:"capacity" binding:"required,gt=0"`
	Images         []string `json:"images"`
	Longitude      float64  `json:"longitude"`
	Latitude       float64  `json:"latitude"`
	LongitudeDelta float64  `json:"longitude_delta"`
	LatitudeDelta  float64  `json:"latitude_delta"`
}

// UpdatePropertyRequest lists the fields an owner may change.
type UpdatePropertyRequest struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	PricePerNight  *float64 `json:"price_per_night" binding:"omitempty,gt=0"`
	Address        *string  `json:"address"`
	City           *string  `json:"city"`
	Country        *string  `json:"country"`
	Amenities      *string  `json:"amenities"`
	Capacity       *int     `json:"capacity" binding:"omitempty,gt=0"`
	Images         []string `json:"images"`
	Longitude      *float64 `json:"longitude"`
	Latitude       *float64 `json:"latitude"`
	LongitudeDelta *float64 `json:"longitude_delta"`
	LatitudeDelta  *float64 `json:"latitude_delta"`
}

func (r UpdatePropertyRequest) toPatch() property.Patch {
	return property.Patch{
		Name:           r.Name,
		Description:    r.Description,
		PricePerNight:  r.PricePerNight,
		Address:        r.Address,
		City:           r.City,
		Country:        r.Country,
		Amenities:      r.Amenities,
		Capacity:       r.Capacity,
		Images:         r.Images,
		Longitude:      r.Longitude,
		Latitude:       r.Latitude,
		LongitudeDelta: r.LongitudeDelta,
		LatitudeDelta:  r.LatitudeDelta,
	}
}

// PropertyDTO is the API response DTO for property data.
type PropertyDTO struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PricePerNight  float64   `json:"price_per_night"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
	Amenities      string    `json:"amenities"`
	Capacity       int       `json:"capacity"`
	Images         []string  `json:"images"`
	Longitude      float64   `json:"longitude"`
	Latitude       float64   `json:"latitude"`
	LongitudeDelta float64   `json:"longitude_delta"`
	LatitudeDelta  float64   `json:"latitude_delta"`
	IsFavorite     bool      `json:"is_favorite"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PropertyPage is one page of properties.
type PropertyPage struct {
	Properties []PropertyDTO
	Total      int64
	Page       int
	PageSize   int
}

// CacheOptions sizes the property read cache.
type CacheOptions struct {
	TTL     time.Duration
	MaxSize int64
}

// PropertyService is the application service for listings.
type PropertyService struct {
	repo      property.Repository
	favorites favorite.Repository
	cache     *ccache.Cache[PropertyDTO]
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewPropertyService creates a new PropertyService with a local read cache for single lookups.
func NewPropertyService(
	repo property.Repository,
	favorites favorite.Repository,
	cacheOpts CacheOptions,
	logger *zap.Logger,
) *PropertyService {
	if cacheOpts.MaxSize <= 0 {
		cacheOpts.MaxSize = 1000
	}
	if cacheOpts.TTL <= 0 {
		cacheOpts.TTL = 5 * time.Minute
	}
	return &PropertyService{
		repo:      repo,
		favorites: favorites,
		cache:     ccache.New(ccache.Configure[PropertyDTO]().MaxSize(cacheOpts.MaxSize)),
		cacheTTL:  cacheOpts.TTL,
		logger:    logger,
	}
}

// Stop releases the cache worker.
func (s *PropertyService) Stop() {
	s.cache.Stop()
}

// CreateProperty lists a property owned by the caller.
func (s *PropertyService) CreateProperty(ctx context.Context, ownerID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error) {
	p, err := property.NewProperty(ownerID,
		property.Details{
			Name:        req.Name,
			Description: req.Description,
			Address:     req.Address,
			City:        req.City,
			Country:     req.Country,
			Amenities:   req.Amenities,
			Capacity:    req.Capacity,
			Images:      req.Images,
		},
		property.Location{
			Longitude:      req.Longitude,
			Latitude:       req.Latitude,
			LongitudeDelta: req.LongitudeDelta,
			LatitudeDelta:  req.LatitudeDelta,
		},
		req.PricePerNight,
	)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("property created",
		zap.String("property_id", p.ID().String()),
		zap.String("owner_id", ownerID.String()),
	)
	dto := toPropertyDTO(p, false)
	return &dto, nil
}

// ListProperties returns a page of properties, newest first. A nil viewer gets no favorite flags.
func (s *PropertyService) ListProperties(ctx context.Context, viewerID uuid.UUID, page, pageSize int) (*PropertyPage, error) {
	page, pageSize = NormalizePage(page, pageSize)

	props, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	dtos, err := s.withFavorites(ctx, viewerID, props)
	if err != nil {
		return nil, err
	}
	return &PropertyPage{Properties: dtos, Total: total, Page: page, PageSize: pageSize}, nil
}

// SearchByCity matches the city case-insensitively by substring.
func (s *PropertyService) SearchByCity(ctx context.Context, viewerID uuid.UUID, city string) ([]PropertyDTO, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, domain.NewValidationError("city parameter is required")
	}
	props, err := s.repo.SearchByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	return s.withFavorites(ctx, viewerID, props)
}

// GetProperty returns one property, served from the cache when possible.
func (s *PropertyService) GetProperty(ctx context.Context, viewerID, propertyID uuid.UUID) (*PropertyDTO, error) {
	key := propertyID.String()

	var dto PropertyDTO
	if item := s.cache.Get(key); item != nil && !item.Expired() {
		dto = item.Value()
	} else {
		p, err := s.repo.FindByID(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		dto = toPropertyDTO(p, false)
		s.cache.Set(key, dto, s.cacheTTL)
	}

	if viewerID != uuid.Nil {
		fav, err := s.favorites.Exists(ctx, viewerID, propertyID)
		if err != nil {
			return nil, err
		}
		dto.IsFavorite = fav
	}
	return &dto, nil
}

// UpdateProperty applies an owner's changes. The nightly price cannot change while
// non-cancelled bookings reference the property.
func (s *PropertyService) UpdateProperty(ctx context.Context, ownerID, propertyID uuid.UUID, req UpdatePropertyRequest) (*PropertyDTO, error) {
	var updated *property.Property

	// The row lock is the one booking writers take, so no booking can be admitted
	// between the count and the write.
	err := s.repo.Transaction(ctx, func(tx property.Repository) error {
		p, err := tx.FindByIDForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(ownerID) {
			return domain.NewForbiddenError("not authorized to update this property")
		}

		patch := req.toPatch()
		if p.ChangesPrice(patch) {
			active, err := tx.CountActiveBookings(ctx, propertyID)
			if err != nil {
				return err
			}
			if active > 0 {
				return domain.NewConflictError("price cannot change while the property has active bookings")
			}
		}
		if err := p.Apply(patch); err != nil {
			return err
		}
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Delete(propertyID.String())

	s.logger.Info("property updated", zap.String("property_id", propertyID.String()))
	dto := toPropertyDTO(updated, false)
	return &dto, nil
}

// DeleteProperty removes a listing that no active booking references.
func (s *PropertyService) DeleteProperty(ctx context.Context, ownerID, propertyID uuid.UUID) error {
	err := s.repo.Transaction(ctx, func(tx property.Repository) error {
		p, err := tx.FindByIDForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(ownerID) {
			return domain.NewForbiddenError("not authorized to delete this property")
		}
		active, err := tx.CountActiveBookings(ctx, propertyID)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.NewConflictError("property has active bookings")
		}
		return tx.Delete(ctx, propertyID)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(propertyID.String())

	s.logger.Info("property deleted", zap.String("property_id", propertyID.String()))
	return nil
}

// withFavorites resolves the viewer's favorite flags with a single query.
func (s *PropertyService) withFavorites(ctx context.Context, viewerID uuid.UUID, props []*property.Property) ([]PropertyDTO, error) {
	favs := map[uuid.UUID]bool{}
	if viewerID != uuid.Nil && len(props) > 0 {
		ids := make([]uuid.UUID, len(props))
		for i, p := range props {
			ids[i] = p.ID()
		}
		var err error
		if favs, err = s.favorites.FavoritedAmong(ctx, viewerID, ids); err != nil {
			return nil, err
		}
	}

	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = toPropertyDTO(p, favs[p.ID()])
	}
	return dtos, nil
}

func toPropertyDTO(p *property.Property, isFavorite bool) PropertyDTO {
	d, l := p.Details(), p.Location()
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return PropertyDTO{
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
		Images:         images,
		Longitude:      l.Longitude,
		Latitude:       l.Latitude,
		LongitudeDelta: l.LongitudeDelta,
		LatitudeDelta:  l.LatitudeDelta,
		IsFavorite:     isFavorite,
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}

func toPropertyDTOPtr(p *property.Property, isFavorite bool) *PropertyDTO {
	dto := toPropertyDTO(p, isFavorite)
	return &dto
}
