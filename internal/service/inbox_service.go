package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/repository"
	"go.uber.org/zap"
)

// InboxService exposes a user's own notifications for reading. Every
// operation is scoped to the requesting user: a foreign notification id
// resolves to ErrNotFound, never to another user's data.
type InboxService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

func NewInboxService(notifications repository.NotificationRepository, logger *zap.Logger) (*InboxService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InboxService{
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *InboxService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.Notification, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	return s.notifications.List(ctx, repository.ListParams{
		RecipientID: userID,
		UnreadOnly:  unreadOnly,
		Page:        page,
		PageSize:    pageSize,
	})
}

func (s *InboxService) CountUnread(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read, setting the read
// timestamp. Marking an already-read notification refreshes nothing visible
// and stays a 200-level operation.
func (s *InboxService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	return s.notifications.MarkRead(ctx, strings.TrimSpace(notificationID), userID, s.now().UTC())
}

// MarkAllRead marks every unread notification of the user read and returns
// how many records were affected.
func (s *InboxService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	count, err := s.notifications.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	s.logger.Debug("marked all notifications read",
		zap.String("userId", userID),
		zap.Int64("count", count),
	)
	return count, nil
}
