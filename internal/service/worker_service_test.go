package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/queue"
	"go.uber.org/zap"
)

func newTestWorker(t *testing.T, dispatcher *DispatchService, consumer queue.Consumer) *WorkerService {
	t.Helper()

	worker, err := NewWorkerService(dispatcher, consumer, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	return worker
}

func TestWorkerHandleEventMessage(t *testing.T) {
	t.Parallel()

	var publishedRecipient string
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.Message) error {
			publishedRecipient = msg.(queue.DispatchMessage).RecipientID
			return nil
		},
	}
	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, publisher)
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	body, err := json.Marshal(queue.EventMessage{
		EventID:      "evt-1",
		Kind:         domain.KindNewPost,
		SenderID:     "author-1",
		RecipientIDs: []string{"follower-1"},
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if err := worker.handleEventMessage(context.Background(), body); err != nil {
		t.Fatalf("handleEventMessage() error = %v", err)
	}
	if publishedRecipient != "follower-1" {
		t.Fatalf("dispatch published for %q, want follower-1", publishedRecipient)
	}
}

func TestWorkerHandleEventMessageMalformed(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	err := worker.handleEventMessage(context.Background(), []byte("{not json"))
	if !errors.Is(err, queue.ErrBadMessage) {
		t.Fatalf("handleEventMessage() error = %v, want ErrBadMessage", err)
	}
}

func TestWorkerHandleEventMessageInvalidPayload(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	body, err := json.Marshal(queue.EventMessage{
		EventID:      "evt-bad",
		Kind:         domain.Kind("NEW_LIKE"),
		SenderID:     "author-1",
		RecipientIDs: []string{"follower-1"},
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if err := worker.handleEventMessage(context.Background(), body); !errors.Is(err, queue.ErrBadMessage) {
		t.Fatalf("handleEventMessage() error = %v, want ErrBadMessage", err)
	}
}

func TestWorkerHandleEventMessageTransientFailureRequeues(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("store unavailable")
	notifications := &fakeNotificationRepo{
		getByEventAndRecipientFn: func(ctx context.Context, eventID, recipientID string) (*domain.Notification, error) {
			return nil, storeErr
		},
	}
	dispatcher := newTestDispatchService(t, notifications, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	body, err := json.Marshal(queue.EventMessage{
		EventID:      "evt-2",
		Kind:         domain.KindNewPost,
		SenderID:     "author-1",
		RecipientIDs: []string{"follower-1"},
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	err = worker.handleEventMessage(context.Background(), body)
	if err == nil {
		t.Fatal("handleEventMessage() expected error for store failure")
	}
	if errors.Is(err, queue.ErrBadMessage) {
		t.Fatalf("handleEventMessage() error = %v, transient failures must requeue, not dead-letter", err)
	}
}

func TestWorkerHandleDispatchMessage(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Notification, error) {
			return &domain.Notification{
				ID:          id,
				RecipientID: "user-1",
				Kind:        domain.KindNewPost,
				Title:       "New Post",
				Message:     "hi",
			}, nil
		},
	}
	devices := &fakeDeviceRepo{
		activeByUserFn: func(ctx context.Context, userID string) ([]domain.Device, error) {
			return []domain.Device{
				{ID: "d1", UserID: "user-1", Token: "tok-1", Platform: domain.PlatformAndroid, IsActive: true},
			}, nil
		},
	}
	dispatcher := newTestDispatchService(t, notifications, &fakeDeliveryRepo{}, devices, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	body, err := json.Marshal(queue.DispatchMessage{
		NotificationID: "n1",
		RecipientID:    "user-1",
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if err := worker.handleDispatchMessage(context.Background(), body); err != nil {
		t.Fatalf("handleDispatchMessage() error = %v", err)
	}
}

func TestWorkerHandleDispatchMessageNotFoundAck(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	body, err := json.Marshal(queue.DispatchMessage{
		NotificationID: "missing",
		RecipientID:    "user-1",
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if err := worker.handleDispatchMessage(context.Background(), body); err != nil {
		t.Fatalf("handleDispatchMessage() unexpected error = %v", err)
	}
}

func TestWorkerHandleDispatchMessageMalformed(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, &fakeConsumer{})

	err := worker.handleDispatchMessage(context.Background(), []byte(`{"notificationId":""}`))
	if !errors.Is(err, queue.ErrBadMessage) {
		t.Fatalf("handleDispatchMessage() error = %v, want ErrBadMessage", err)
	}
}

func TestWorkerStartPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	consumeErr := errors.New("consume failed")
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			return consumeErr
		},
	}

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, consumer)

	err := worker.Start(context.Background())
	if !errors.Is(err, consumeErr) {
		t.Fatalf("Start() error = %v, want %v", err, consumeErr)
	}
}

func TestWorkerStartConsumesBothQueues(t *testing.T) {
	t.Parallel()

	seen := make(chan string, 16)
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			seen <- queueName
			<-ctx.Done()
			return nil
		},
	}

	dispatcher := newTestDispatchService(t, &fakeNotificationRepo{}, &fakeDeliveryRepo{}, &fakeDeviceRepo{}, &fakeSender{}, &fakePublisher{})
	worker := newTestWorker(t, dispatcher, consumer)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	queues := map[string]int{}
	for i := 0; i < 4; i++ {
		queues[<-seen]++
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if queues[queue.EventQueue] != 2 || queues[queue.DispatchQueue] != 2 {
		t.Fatalf("consumed queues = %v, want 2 consumers per queue", queues)
	}
}
