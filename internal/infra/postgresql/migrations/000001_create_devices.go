package migrations

import (
	"github.com/feedapp/notification-service/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createDevicesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_devices",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeviceModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_devices_user_active ON devices (user_id) WHERE is_active`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_user_hardware ON devices (user_id, hardware_id) WHERE hardware_id <> ''`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeviceModel{})
		},
	}
}
