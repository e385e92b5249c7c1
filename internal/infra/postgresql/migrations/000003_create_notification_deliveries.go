package migrations

import (
	"github.com/feedapp/notification-service/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createNotificationDeliveriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notification_deliveries",
		Migrate: func(tx *gorm.DB) error {
			// AutoMigrate creates the unique (notification_id, device_id)
			// index from the model tags; it is the idempotency anchor of
			// the dispatch pipeline, so fail loudly if it cannot exist.
			if err := tx.AutoMigrate(&repository.NotificationDeliveryModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_deliveries_notification_id ON notification_deliveries (notification_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationDeliveryModel{})
		},
	}
}
