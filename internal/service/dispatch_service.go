package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/gateway"
	"github.com/feedapp/notification-service/internal/observability"
	"github.com/feedapp/notification-service/internal/queue"
	"github.com/feedapp/notification-service/internal/ratelimit"
	"github.com/feedapp/notification-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const maxParallelDeliveries = 4

// Event is one domain occurrence to fan out into notifications.
type Event struct {
	ID            string
	CorrelationID string
	Kind          domain.Kind
	SenderID      string
	RecipientIDs  []string
	PostID        *string
	CommentID     *string
	Body          string
	ActionData    map[string]string
}

// DispatchResult aggregates per-device outcomes of one dispatch run.
type DispatchResult struct {
	Attempted        int
	Delivered        int
	AlreadyDelivered int
	Failed           int
	Deactivated      int
}

// DispatchService is the dispatch orchestrator. It holds no state between
// runs: every operation is a pass over store, registry, and gateway, safe to
// re-invoke with identical arguments because the unique delivery pair in the
// store short-circuits repeated work.
type DispatchService struct {
	notifications repository.NotificationRepository
	deliveries    repository.DeliveryRepository
	devices       repository.DeviceRepository
	sender        gateway.Sender
	publisher     queue.Publisher
	rateLimiter   ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewDispatchService(
	notifications repository.NotificationRepository,
	deliveries repository.DeliveryRepository,
	devices repository.DeviceRepository,
	sender gateway.Sender,
	publisher queue.Publisher,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*DispatchService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("gateway sender is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("queue publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		notifications: notifications,
		deliveries:    deliveries,
		devices:       devices,
		sender:        sender,
		publisher:     publisher,
		rateLimiter:   rateLimiter,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// DispatchEvent materializes one notification per recipient and enqueues a
// per-recipient dispatch work unit. Re-invoking with the same event is safe:
// existing (event, recipient) notifications are reused, not duplicated. An
// empty recipient set is a no-op.
func (s *DispatchService) DispatchEvent(ctx context.Context, event Event) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !event.Kind.IsValid() {
		return fmt.Errorf("%w: invalid event kind %q", domain.ErrValidation, event.Kind)
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(event.SenderID) == "" {
		return fmt.Errorf("%w: event sender is required", domain.ErrValidation)
	}

	if len(event.RecipientIDs) == 0 {
		s.logger.Debug("event has no recipients, nothing to dispatch",
			zap.String("eventId", event.ID),
		)
		return nil
	}

	publishFailures := 0
	for _, recipientID := range event.RecipientIDs {
		// Self-notification suppression: a comment on your own post (or any
		// event echoing back to its sender) creates nothing.
		if recipientID == event.SenderID {
			continue
		}

		notification, err := s.resolveNotification(ctx, event, recipientID)
		if err != nil {
			return fmt.Errorf("failed to create notification for recipient %s: %w", recipientID, err)
		}

		msg := queue.DispatchMessage{
			NotificationID: notification.ID,
			RecipientID:    recipientID,
			CorrelationID:  event.CorrelationID,
		}
		if err := s.publisher.Publish(ctx, queue.DispatchQueue, msg); err != nil {
			publishFailures++
			s.logger.Error("failed to enqueue dispatch for recipient",
				zap.String("eventId", event.ID),
				zap.String("notificationId", notification.ID),
				zap.String("recipientId", recipientID),
				zap.Error(err),
			)
		}
	}

	// A publish failure leaves the notification record in place and visible
	// through the inbox API; redelivery of the event message resumes cleanly
	// because notification creation is keyed on (event, recipient).
	if publishFailures > 0 {
		return fmt.Errorf("failed to enqueue dispatch for %d of %d recipients", publishFailures, len(event.RecipientIDs))
	}

	return nil
}

// resolveNotification finds the (event, recipient) notification or creates
// it, resolving the unique-index race the same way either side loses it.
func (s *DispatchService) resolveNotification(ctx context.Context, event Event, recipientID string) (*domain.Notification, error) {
	existing, err := s.notifications.GetByEventAndRecipient(ctx, event.ID, recipientID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	notification := &domain.Notification{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		RecipientID: recipientID,
		SenderID:    event.SenderID,
		Kind:        event.Kind,
		Title:       event.Kind.Title(),
		Message:     eventBody(event),
		PostID:      event.PostID,
		CommentID:   event.CommentID,
		ActionData:  eventActionData(event),
	}
	if err := notification.Validate(); err != nil {
		return nil, err
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		if isUniqueViolationError(err) {
			return s.notifications.GetByEventAndRecipient(ctx, event.ID, recipientID)
		}
		return nil, err
	}

	return notification, nil
}

// DispatchToUser pushes one notification to every active device of one user.
// Zero active devices completes with a zero-attempt result and no error.
func (s *DispatchService) DispatchToUser(ctx context.Context, notificationID, userID string) (DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var result DispatchResult

	notification, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return result, err
	}
	if notification.RecipientID != userID {
		return result, fmt.Errorf("%w: notification %s does not belong to user %s", domain.ErrNotFound, notificationID, userID)
	}

	devices, err := s.devices.ActiveByUser(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load active devices: %w", err)
	}
	if len(devices) == 0 {
		s.logger.Info("no active devices for user, nothing to push",
			zap.String("notificationId", notificationID),
			zap.String("userId", userID),
		)
		return result, nil
	}

	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDeliveries)

	for i := range devices {
		device := devices[i]
		g.Go(func() error {
			outcome, err := s.deliverToDevice(groupCtx, notification, device)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			result.Attempted++
			switch outcome {
			case domain.OutcomeDelivered:
				result.Delivered++
			case domain.OutcomeAlreadyDelivered:
				result.AlreadyDelivered++
			case domain.OutcomeInvalidTarget:
				result.Failed++
				result.Deactivated++
			case domain.OutcomeTransientFailure:
				result.Failed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	// A run abandoned between MarkDelivered and MarkSent leaves a delivered
	// pair behind; the redelivered message observes it as AlreadyDelivered,
	// which still proves at least one delivery succeeded.
	if result.Delivered+result.AlreadyDelivered > 0 && !notification.IsSent {
		if err := s.notifications.MarkSent(ctx, notification.ID); err != nil {
			return result, fmt.Errorf("failed to mark notification sent: %w", err)
		}
	}

	return result, nil
}

// deliverToDevice is the idempotent per-device unit of work: get-or-create
// the delivery pair, short-circuit if already delivered, otherwise call the
// gateway once and record the classified outcome. Gateway failures are
// absorbed into the outcome; only store and rate-limiter failures return an
// error and ride the queue's redelivery.
func (s *DispatchService) deliverToDevice(ctx context.Context, notification *domain.Notification, device domain.Device) (domain.Outcome, error) {
	delivery, created, err := s.deliveries.GetOrCreate(ctx, notification.ID, device.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve delivery record: %w", err)
	}
	if !created && delivery.IsDelivered {
		return domain.OutcomeAlreadyDelivered, nil
	}

	platformLabel := strings.ToLower(device.Platform.String())
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, platformLabel); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	push := gateway.Push{
		Token: device.Token,
		Title: notification.Title,
		Body:  notification.Message,
		Data:  pushData(notification),
	}

	sendStart := s.now()
	receipt, sendErr := s.sender.Send(ctx, push)
	if s.metrics != nil {
		s.metrics.ObservePushSendDuration(platformLabel, s.now().Sub(sendStart))
	}

	if sendErr == nil {
		if err := s.deliveries.MarkDelivered(ctx, delivery.ID, s.now().UTC()); err != nil {
			return "", fmt.Errorf("failed to mark delivery delivered: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncDeliverySent(platformLabel)
		}
		messageID := ""
		if receipt != nil {
			messageID = receipt.MessageID
		}
		s.logger.Info("push delivered",
			zap.String("notificationId", notification.ID),
			zap.String("deviceId", device.ID),
			zap.String("gatewayMessageId", messageID),
		)
		return domain.OutcomeDelivered, nil
	}

	if err := s.deliveries.MarkFailed(ctx, delivery.ID, sendErr.Error()); err != nil {
		return "", fmt.Errorf("failed to mark delivery failed: %w", err)
	}

	if gateway.IsInvalidTarget(sendErr) {
		if err := s.devices.Deactivate(ctx, device.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("failed to deactivate device: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncDeliveryFailed(platformLabel, "invalid_target")
			s.metrics.IncDeviceDeactivated(platformLabel)
		}
		s.logger.Warn("push token permanently rejected, device deactivated",
			zap.String("notificationId", notification.ID),
			zap.String("deviceId", device.ID),
			zap.Error(sendErr),
		)
		return domain.OutcomeInvalidTarget, nil
	}

	if s.metrics != nil {
		s.metrics.IncDeliveryFailed(platformLabel, "transient")
	}
	s.logger.Warn("push delivery failed, eligible for retry",
		zap.String("notificationId", notification.ID),
		zap.String("deviceId", device.ID),
		zap.Error(sendErr),
	)
	return domain.OutcomeTransientFailure, nil
}

// pushData is the structured payload of the gateway wire contract.
func pushData(n *domain.Notification) map[string]string {
	data := map[string]string{
		"notification_id": n.ID,
		"type":            strings.ToLower(n.Kind.String()),
	}
	if len(n.ActionData) > 0 {
		if encoded, err := json.Marshal(n.ActionData); err == nil {
			data["action_data"] = string(encoded)
		}
	}
	return data
}

func eventBody(event Event) string {
	if body := strings.TrimSpace(event.Body); body != "" {
		return body
	}
	switch event.Kind {
	case domain.KindNewPost:
		return "Someone you follow shared a new post"
	case domain.KindNewComment:
		return "Someone commented on your post"
	}
	return ""
}

func eventActionData(event Event) map[string]string {
	if len(event.ActionData) > 0 {
		return event.ActionData
	}

	data := map[string]string{
		"type": strings.ToLower(event.Kind.String()),
	}
	if event.PostID != nil {
		data["post_id"] = *event.PostID
	}
	if event.CommentID != nil {
		data["comment_id"] = *event.CommentID
	}
	switch event.Kind {
	case domain.KindNewPost:
		data["navigate_to"] = "post_detail"
	case domain.KindNewComment:
		data["navigate_to"] = "comment_detail"
	}
	return data
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
