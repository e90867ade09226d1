package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/domain/favorite"
	"github.com/stayhub/service-rental/internal/domain/property"
)

// FavoriteStatusDTO reports whether a property is in the caller's favorites.
type FavoriteStatusDTO struct {
	PropertyID uuid.UUID `json:"property_id"`
	IsFavorite bool      `json:"is_favorite"`
}

// FavoriteService is the application service for saved properties.
type FavoriteService struct {
	repo       favorite.Repository
	properties property.Repository
	logger     *zap.Logger
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(repo favorite.Repository, properties property.Repository, logger *zap.Logger) *FavoriteService {
	return &FavoriteService{repo: repo, properties: properties, logger: logger}
}

// Toggle adds or removes the property from the caller's favorites.
func (s *FavoriteService) Toggle(ctx context.Context, userID, propertyID uuid.UUID) (*FavoriteStatusDTO, error) {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return nil, err
	}
	fav, err := s.repo.Toggle(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("favorite toggled",
		zap.String("user_id", userID.String()),
		zap.String("property_id", propertyID.String()),
		zap.Bool("is_favorite", fav),
	)
	return &FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: fav}, nil
}

// List returns the caller's favorite properties, most recently saved first.
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID) ([]PropertyDTO, error) {
	ids, err := s.repo.ListPropertyIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	props, err := s.properties.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*property.Property, len(props))
	for _, p := range props {
		byID[p.ID()] = p
	}

	dtos := make([]PropertyDTO, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			dtos = append(dtos, toPropertyDTO(p, true))
		}
	}
	return dtos, nil
}

// Status reports whether the property is a favorite of the caller.
func (s *FavoriteService) Status(ctx context.Context, userID, propertyID uuid.UUID) (*FavoriteStatusDTO, error) {
	fav, err := s.repo.Exists(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	return &FavoriteStatusDTO{PropertyID: propertyID, IsFavorite: fav}, nil
}
