package repository

import (
	"context"
	"errors"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepository interface {
	// GetOrCreate atomically resolves the delivery record for a
	// (notification, device) pair. Concurrent callers racing on the same
	// pair observe exactly one record; the second return value reports
	// whether this call inserted it.
	GetOrCreate(ctx context.Context, notificationID, deviceID string) (*domain.NotificationDelivery, bool, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	ListByNotification(ctx context.Context, notificationID string) ([]domain.NotificationDelivery, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) GetOrCreate(ctx context.Context, notificationID, deviceID string) (*domain.NotificationDelivery, bool, error) {
	model := &NotificationDeliveryModel{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		DeviceID:       deviceID,
	}

	// ON CONFLICT DO NOTHING on the unique pair index; RowsAffected tells
	// apart insert from pre-existing record.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "notification_id"},
				{Name: "device_id"},
			},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, result.Error
	}

	if result.RowsAffected > 0 {
		return deliveryModelToDomain(model), true, nil
	}

	var existing NotificationDeliveryModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND device_id = ?", notificationID, deviceID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, domain.ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	return deliveryModelToDomain(&existing), false, nil
}

func (r *GormDeliveryRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationDeliveryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_delivered":  true,
			"delivered_at":  at,
			"error_message": "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeliveryRepo) MarkFailed(ctx context.Context, id, message string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationDeliveryModel{}).
		Where("id = ?", id).
		Update("error_message", message)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeliveryRepo) ListByNotification(ctx context.Context, notificationID string) ([]domain.NotificationDelivery, error) {
	var models []NotificationDeliveryModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]domain.NotificationDelivery, 0, len(models))
	for i := range models {
		deliveries = append(deliveries, *deliveryModelToDomain(&models[i]))
	}

	return deliveries, nil
}
