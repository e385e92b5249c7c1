package repository

import (
	"context"
	"errors"

	"github.com/feedapp/notification-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository interface {
	// Upsert registers a device. A token already known to the registry is
	// re-bound to the given user and reactivated instead of erroring.
	Upsert(ctx context.Context, d *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	ActiveByUser(ctx context.Context, userID string) ([]domain.Device, error)
	// Deactivate flips is_active off. Deactivating an already-inactive
	// device is a no-op, not an error.
	Deactivate(ctx context.Context, id string) error
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
}

type GormDeviceRepo struct {
	db *gorm.DB
}

func NewGormDeviceRepo(db *gorm.DB) *GormDeviceRepo {
	return &GormDeviceRepo{db: db}
}

func (r *GormDeviceRepo) Upsert(ctx context.Context, d *domain.Device) error {
	model := deviceModelFromDomain(d)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id",
				"platform",
				"hardware_id",
				"is_active",
				"updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	// The insert path keeps the generated id; the conflict path must read
	// back the id of the row that won.
	var stored DeviceModel
	if err := r.db.WithContext(ctx).First(&stored, "token = ?", model.Token).Error; err != nil {
		return err
	}

	if d != nil {
		*d = *deviceModelToDomain(&stored)
	}
	return nil
}

func (r *GormDeviceRepo) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	var model DeviceModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deviceModelToDomain(&model), nil
}

func (r *GormDeviceRepo) ActiveByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	var models []DeviceModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(models))
	for i := range models {
		devices = append(devices, *deviceModelToDomain(&models[i]))
	}

	return devices, nil
}

func (r *GormDeviceRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&DeviceModel{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeviceRepo) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&DeviceModel{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
