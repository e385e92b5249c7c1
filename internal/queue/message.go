package queue

import (
	"fmt"
	"strings"

	"github.com/feedapp/notification-service/internal/domain"
)

// EventMessage is the broker payload enqueued by content producers. One
// event fans out into one notification per recipient.
type EventMessage struct {
	EventID       string            `json:"eventId"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Kind          domain.Kind       `json:"kind"`
	SenderID      string            `json:"senderId"`
	RecipientIDs  []string          `json:"recipientIds"`
	PostID        *string           `json:"postId,omitempty"`
	CommentID     *string           `json:"commentId,omitempty"`
	Body          string            `json:"body,omitempty"`
	ActionData    map[string]string `json:"actionData,omitempty"`
}

func (m EventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid kind %q", m.Kind)
	}
	if strings.TrimSpace(m.SenderID) == "" {
		return fmt.Errorf("senderId is required")
	}
	for _, recipientID := range m.RecipientIDs {
		if strings.TrimSpace(recipientID) == "" {
			return fmt.Errorf("recipientIds must not contain blank entries")
		}
	}
	return nil
}

func (m EventMessage) MessageID() string { return m.EventID }

func (m EventMessage) Correlation() string { return m.CorrelationID }

// DispatchMessage is the per-recipient work unit: push one notification to
// every active device of one user.
type DispatchMessage struct {
	NotificationID string `json:"notificationId"`
	RecipientID    string `json:"recipientId"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	if strings.TrimSpace(m.RecipientID) == "" {
		return fmt.Errorf("recipientId is required")
	}
	return nil
}

func (m DispatchMessage) MessageID() string { return m.NotificationID }

func (m DispatchMessage) Correlation() string { return m.CorrelationID }
