package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteModel is the GORM model for the favorites table.
type FavoriteModel struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (FavoriteModel) TableName() string { return "favorites" }

// GormFavoriteRepository implements favorite.Repository using GORM.
type GormFavoriteRepository struct {
	db *gorm.DB
}

// NewGormFavoriteRepository creates a new GormFavoriteRepository.
func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

// Toggle removes an existing favorite or inserts a new one.
func (r *GormFavoriteRepository) Toggle(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND property_id = ?", userID, propertyID).Delete(&FavoriteModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			favorited = false
			return nil
		}
		favorited = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&FavoriteModel{
			UserID:     userID,
			PropertyID: propertyID,
			CreatedAt:  time.Now().UTC(),
		}).Error
	})
	return favorited, err
}

// Exists reports whether the user has favorited the property.
func (r *GormFavoriteRepository) Exists(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FavoriteModel{}).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&count).Error
	return count > 0, err
}

// FavoritedAmong returns the subset of propertyIDs the user has favorited.
func (r *GormFavoriteRepository) FavoritedAmong(ctx context.Context, userID uuid.UUID, propertyIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return set, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&FavoriteModel{}).
		Where("user_id = ? AND property_id IN ?", userID, propertyIDs).
		Pluck("property_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListPropertyIDs returns the IDs of every property the user has favorited, most recent first.
func (r *GormFavoriteRepository) ListPropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&FavoriteModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("property_id", &ids).Error
	return ids, err
}

// CountByUserID counts the user's favorites.
func (r *GormFavoriteRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FavoriteModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Models lists every persistence model for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&UserModel{}, &PropertyModel{}, &BookingModel{}, &FavoriteModel{}}
}
