// File: internal/repository/draft/storage_repository.go
package draft

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-loanform/internal/domain"
)

// StorageRepository is durable key/value storage partitioned by owner.
type StorageRepository interface {
	GetItem(ctx context.Context, owner, key string) (string, bool, error)
	SetItem(ctx context.Context, owner, key, value string) error
	RemoveItem(ctx context.Context, owner, key string) error
}

// GormStorageRepository implements StorageRepository using GORM
type GormStorageRepository struct {
	db *gorm.DB
}

// NewGormStorageRepository creates a new storage repository
func NewGormStorageRepository(db *gorm.DB) *GormStorageRepository {
	return &GormStorageRepository{db: db}
}

// Migrate creates or updates the stored_items table.
func (r *GormStorageRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.StoredItem{})
}

// GetItem returns the stored value and whether it exists.
func (r *GormStorageRepository) GetItem(ctx context.Context, owner, key string) (string, bool, error) {
	if err := validateAddress(owner, key); err != nil {
		return "", false, err
	}

	var item domain.StoredItem
	err := r.db.WithContext(ctx).
		Where(&domain.StoredItem{Owner: owner, Key: key}).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: get %q: %w", key, err)
	}
	return item.Value, true, nil
}

// SetItem writes value under key, replacing any previous value.
func (r *GormStorageRepository) SetItem(ctx context.Context, owner, key, value string) error {
	if err := validateAddress(owner, key); err != nil {
		return err
	}

	item := domain.StoredItem{Owner: owner, Key: key, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&item).Error
	if err != nil {
		return fmt.Errorf("storage: set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (r *GormStorageRepository) RemoveItem(ctx context.Context, owner, key string) error {
	if err := validateAddress(owner, key); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Where(&domain.StoredItem{Owner: owner, Key: key}).
		Delete(&domain.StoredItem{}).Error
	if err != nil {
		return fmt.Errorf("storage: remove %q: %w", key, err)
	}
	return nil
}

func validateAddress(owner, key string) error {
	if owner == "" {
		return errors.New("storage: owner is required")
	}
	if key == "" {
		return errors.New("storage: key is required")
	}
	return nil
}

// Scoped is one owner's view of the storage, the shape a single browser sees.
type Scoped struct {
	repo  StorageRepository
	owner string
}

// ForOwner binds the repository to a single owner.
func ForOwner(repo StorageRepository, owner string) *Scoped {
	return &Scoped{repo: repo, owner: owner}
}

func (s *Scoped) GetItem(ctx context.Context, key string) (string, bool, error) {
	return s.repo.GetItem(ctx, s.owner, key)
}

func (s *Scoped) SetItem(ctx context.Context, key, value string) error {
	return s.repo.SetItem(ctx, s.owner, key, value)
}

func (s *Scoped) RemoveItem(ctx context.Context, key string) error {
	return s.repo.RemoveItem(ctx, s.owner, key)
}
