package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"presence-sync-service/internal/domain"
)

// KnownUser is the (external id, display name) projection served by the
// users listing endpoint
type KnownUser struct {
	AADUserID   string `json:"aad_user_id"`
	DisplayName string `json:"display_name"`
}

// UserRepository defines the interface for directory user data access
type UserRepository interface {
	// FindOrCreateForUpdate looks up a user by AAD id under a row-level
	// write lock, creating it from defaults when absent. The second return
	// value reports whether the row was created.
	FindOrCreateForUpdate(ctx context.Context, aadUserID string, defaults domain.DirectoryUser) (*domain.DirectoryUser, bool, error)
	// UpdateFields applies the given column updates to a user
	UpdateFields(ctx context.Context, user *domain.DirectoryUser, fields map[string]interface{}) error
	FindByAADID(ctx context.Context, aadUserID string) (*domain.DirectoryUser, error)
	// DeactivateMissing flips is_active off for every active user whose AAD
	// id is not in activeIDs, in a single bulk update. Returns the number of
	// rows deactivated.
	DeactivateMissing(ctx context.Context, activeIDs []string) (int64, error)
	// ListKnown returns the distinct (aad_user_id, display_name) pairs of
	// all users ever seen
	ListKnown(ctx context.Context) ([]KnownUser, error)
}

// userRepositoryImpl is the GORM implementation of UserRepository
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepositoryImpl{db: db}
}

// lockForUpdate adds a row-level write lock on dialects that support it.
// SQLite (used in tests) has no FOR UPDATE; its writes are serialized by the
// driver.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *userRepositoryImpl) FindOrCreateForUpdate(ctx context.Context, aadUserID string, defaults domain.DirectoryUser) (*domain.DirectoryUser, bool, error) {
	var user domain.DirectoryUser
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).Where("aad_user_id = ?", aadUserID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = defaults
			user.AADUserID = aadUserID
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			created = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return &user, created, nil
}

func (r *userRepositoryImpl) UpdateFields(ctx context.Context, user *domain.DirectoryUser, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(user).Updates(fields).Error
}

func (r *userRepositoryImpl) FindByAADID(ctx context.Context, aadUserID string) (*domain.DirectoryUser, error) {
	var user domain.DirectoryUser
	if err := r.db.WithContext(ctx).Where("aad_user_id = ?", aadUserID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepositoryImpl) DeactivateMissing(ctx context.Context, activeIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.DirectoryUser{}).
		Where("is_active = ?", true)
	if len(activeIDs) > 0 {
		query = query.Where("aad_user_id NOT IN ?", activeIDs)
	}

	result := query.Update("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *userRepositoryImpl) ListKnown(ctx context.Context) ([]KnownUser, error) {
	var users []KnownUser
	if err := r.db.WithContext(ctx).
		Model(&domain.DirectoryUser{}).
		Distinct("aad_user_id", "display_name").
		Order("display_name ASC").
		Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
