package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
)

// ActionDataMap stores the opaque client navigation payload as JSONB.
type ActionDataMap map[string]string

func (m ActionDataMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ActionDataMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported action data type %T", value)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID          string        `gorm:"type:uuid;primaryKey"`
	EventID     string        `gorm:"type:varchar(64);not null"`
	RecipientID string        `gorm:"type:uuid;not null"`
	SenderID    string        `gorm:"type:uuid;not null"`
	Kind        domain.Kind   `gorm:"type:varchar(20);not null"`
	Title       string        `gorm:"type:varchar(255);not null"`
	Message     string        `gorm:"type:text;not null"`
	PostID      *string       `gorm:"type:uuid"`
	CommentID   *string       `gorm:"type:uuid"`
	ActionData  ActionDataMap `gorm:"type:jsonb"`
	IsRead      bool          `gorm:"not null;default:false"`
	IsSent      bool          `gorm:"not null;default:false"`
	CreatedAt   time.Time
	ReadAt      *time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// NotificationDeliveryModel is the persistence model for
// notification_deliveries. The unique (notification_id, device_id) index is
// the idempotency anchor for the whole dispatch pipeline.
type NotificationDeliveryModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	NotificationID string `gorm:"type:uuid;not null;uniqueIndex:idx_deliveries_notification_device"`
	DeviceID       string `gorm:"type:uuid;not null;uniqueIndex:idx_deliveries_notification_device"`
	IsDelivered    bool   `gorm:"not null;default:false"`
	DeliveredAt    *time.Time
	ErrorMessage   string `gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time
}

func (NotificationDeliveryModel) TableName() string {
	return "notification_deliveries"
}

// DeviceModel is the persistence model for devices.
type DeviceModel struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	UserID     string          `gorm:"type:uuid;not null"`
	Token      string          `gorm:"type:varchar(500);not null;uniqueIndex:idx_devices_token"`
	Platform   domain.Platform `gorm:"type:varchar(10);not null"`
	HardwareID string          `gorm:"type:varchar(100);not null;default:''"`
	IsActive   bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DeviceModel) TableName() string {
	return "devices"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:          n.ID,
		EventID:     n.EventID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Kind:        n.Kind,
		Title:       n.Title,
		Message:     n.Message,
		PostID:      n.PostID,
		CommentID:   n.CommentID,
		ActionData:  ActionDataMap(n.ActionData),
		IsRead:      n.IsRead,
		IsSent:      n.IsSent,
		CreatedAt:   n.CreatedAt,
		ReadAt:      n.ReadAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:          m.ID,
		EventID:     m.EventID,
		RecipientID: m.RecipientID,
		SenderID:    m.SenderID,
		Kind:        m.Kind,
		Title:       m.Title,
		Message:     m.Message,
		PostID:      m.PostID,
		CommentID:   m.CommentID,
		ActionData:  map[string]string(m.ActionData),
		IsRead:      m.IsRead,
		IsSent:      m.IsSent,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

func deliveryModelToDomain(m *NotificationDeliveryModel) *domain.NotificationDelivery {
	if m == nil {
		return nil
	}

	return &domain.NotificationDelivery{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		DeviceID:       m.DeviceID,
		IsDelivered:    m.IsDelivered,
		DeliveredAt:    m.DeliveredAt,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
	}
}

func deviceModelFromDomain(d *domain.Device) *DeviceModel {
	if d == nil {
		return nil
	}

	return &DeviceModel{
		ID:         d.ID,
		UserID:     d.UserID,
		Token:      d.Token,
		Platform:   d.Platform,
		HardwareID: d.HardwareID,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func deviceModelToDomain(m *DeviceModel) *domain.Device {
	if m == nil {
		return nil
	}

	return &domain.Device{
		ID:         m.ID,
		UserID:     m.UserID,
		Token:      m.Token,
		Platform:   m.Platform,
		HardwareID: m.HardwareID,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
