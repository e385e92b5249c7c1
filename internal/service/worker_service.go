package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/observability"
	"github.com/feedapp/notification-service/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService consumes the event and dispatch queues and drives the
// dispatch orchestrator. Handler errors nack the message back to the broker;
// the broker's at-least-once redelivery is the only retry mechanism, which
// the orchestrator's idempotency makes safe.
type WorkerService struct {
	dispatcher  *DispatchService
	consumer    queue.Consumer
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewWorkerService(
	dispatcher *DispatchService,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		dispatcher:  dispatcher,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs queue consumers until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	handlers := map[string]queue.MessageHandler{
		queue.EventQueue:    s.handleEventMessage,
		queue.DispatchQueue: s.handleDispatchMessage,
	}

	g, groupCtx := errgroup.WithContext(ctx)
	workerID := 0
	for queueName, handler := range handlers {
		for i := 0; i < s.concurrency; i++ {
			workerID++
			id := workerID
			name := queueName
			h := handler

			g.Go(func() error {
				s.logger.Info("worker started",
					zap.Int("workerId", id),
					zap.String("queue", name),
				)

				err := s.consumer.Consume(groupCtx, name, h)
				if err != nil {
					s.logger.Error("worker stopped with error",
						zap.Int("workerId", id),
						zap.String("queue", name),
						zap.Error(err),
					)
					return err
				}

				s.logger.Info("worker stopped",
					zap.Int("workerId", id),
					zap.String("queue", name),
				)
				return nil
			})
		}
	}

	return g.Wait()
}

func (s *WorkerService) handleEventMessage(ctx context.Context, body []byte) error {
	var msg queue.EventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: invalid event payload: %v", queue.ErrBadMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrBadMessage, err)
	}

	ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	logger := observability.WithContextLogger(s.logger, ctx)

	if s.metrics != nil {
		s.metrics.IncWorkerInFlight(queue.EventQueue)
		defer s.metrics.DecWorkerInFlight(queue.EventQueue)
	}

	err := s.dispatcher.DispatchEvent(ctx, Event{
		ID:            msg.EventID,
		CorrelationID: msg.CorrelationID,
		Kind:          msg.Kind,
		SenderID:      msg.SenderID,
		RecipientIDs:  msg.RecipientIDs,
		PostID:        msg.PostID,
		CommentID:     msg.CommentID,
		Body:          msg.Body,
		ActionData:    msg.ActionData,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			// Never processable; dead-letter instead of looping forever.
			return fmt.Errorf("%w: %v", queue.ErrBadMessage, err)
		}
		logger.Error("event dispatch failed, message will be redelivered",
			zap.String("eventId", msg.EventID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (s *WorkerService) handleDispatchMessage(ctx context.Context, body []byte) error {
	var msg queue.DispatchMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: invalid dispatch payload: %v", queue.ErrBadMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrBadMessage, err)
	}

	ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	logger := observability.WithContextLogger(s.logger, ctx)

	if s.metrics != nil {
		s.metrics.IncWorkerInFlight(queue.DispatchQueue)
		defer s.metrics.DecWorkerInFlight(queue.DispatchQueue)
	}

	result, err := s.dispatcher.DispatchToUser(ctx, msg.NotificationID, msg.RecipientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Nothing to notify; absorbed, not retried.
			logger.Warn("dispatch target not found, skipping",
				zap.String("notificationId", msg.NotificationID),
				zap.String("recipientId", msg.RecipientID),
			)
			return nil
		}
		logger.Error("dispatch failed, message will be redelivered",
			zap.String("notificationId", msg.NotificationID),
			zap.String("recipientId", msg.RecipientID),
			zap.Error(err),
		)
		return err
	}

	logger.Info("dispatch completed",
		zap.String("notificationId", msg.NotificationID),
		zap.String("recipientId", msg.RecipientID),
		zap.Int("attempted", result.Attempted),
		zap.Int("delivered", result.Delivered),
		zap.Int("alreadyDelivered", result.AlreadyDelivered),
		zap.Int("failed", result.Failed),
		zap.Int("deactivated", result.Deactivated),
	)
	return nil
}
