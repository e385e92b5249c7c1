package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/repository"
	"go.uber.org/zap"
)

func newTestInboxService(t *testing.T, notifications *fakeNotificationRepo) *InboxService {
	t.Helper()

	svc, err := NewInboxService(notifications, zap.NewNop())
	if err != nil {
		t.Fatalf("NewInboxService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Unix(1_750_000_000, 0) }
	return svc
}

func TestInboxListPassesScope(t *testing.T) {
	t.Parallel()

	var gotParams repository.ListParams
	notifications := &fakeNotificationRepo{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
			gotParams = params
			return []domain.Notification{{ID: "n1", RecipientID: params.RecipientID}}, 1, nil
		},
	}

	svc := newTestInboxService(t, notifications)

	items, total, err := svc.List(context.Background(), "user-1", true, 2, 25)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("List() = %d items, total %d, want 1 and 1", len(items), total)
	}
	if gotParams.RecipientID != "user-1" || !gotParams.UnreadOnly {
		t.Fatalf("list params = %+v, want user-1 unread only", gotParams)
	}
	if gotParams.Page != 2 || gotParams.PageSize != 25 {
		t.Fatalf("list params = %+v, want page 2 size 25", gotParams)
	}
}

func TestInboxListRequiresUser(t *testing.T) {
	t.Parallel()

	svc := newTestInboxService(t, &fakeNotificationRepo{})

	_, _, err := svc.List(context.Background(), "  ", false, 1, 50)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("List() error = %v, want ErrValidation", err)
	}
}

func TestInboxMarkReadSetsTimestamp(t *testing.T) {
	t.Parallel()

	var gotAt time.Time
	notifications := &fakeNotificationRepo{
		markReadFn: func(ctx context.Context, id, recipientID string, at time.Time) error {
			if id != "n1" || recipientID != "user-1" {
				t.Errorf("MarkRead(%q, %q), want n1 for user-1", id, recipientID)
			}
			gotAt = at
			return nil
		},
	}

	svc := newTestInboxService(t, notifications)

	if err := svc.MarkRead(context.Background(), "user-1", "n1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	want := time.Unix(1_750_000_000, 0).UTC()
	if !gotAt.Equal(want) {
		t.Fatalf("MarkRead timestamp = %v, want %v", gotAt, want)
	}
}

func TestInboxMarkReadForeignNotification(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{
		markReadFn: func(ctx context.Context, id, recipientID string, at time.Time) error {
			return domain.ErrNotFound
		},
	}

	svc := newTestInboxService(t, notifications)

	err := svc.MarkRead(context.Background(), "user-1", "someone-elses")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MarkRead() error = %v, want ErrNotFound", err)
	}
}

func TestInboxMarkAllReadReturnsCount(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{
		markAllReadFn: func(ctx context.Context, recipientID string, at time.Time) (int64, error) {
			if recipientID != "user-1" {
				t.Errorf("MarkAllRead recipient = %q, want user-1", recipientID)
			}
			return 5, nil
		},
	}

	svc := newTestInboxService(t, notifications)

	count, err := svc.MarkAllRead(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if count != 5 {
		t.Fatalf("MarkAllRead() = %d, want 5", count)
	}
}

func TestInboxCountUnread(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{
		countUnreadFn: func(ctx context.Context, recipientID string) (int64, error) {
			return 3, nil
		},
	}

	svc := newTestInboxService(t, notifications)

	count, err := svc.CountUnread(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("CountUnread() = %d, want 3", count)
	}
}
