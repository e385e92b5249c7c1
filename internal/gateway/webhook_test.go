package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestWebhookGatewaySendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody webhookRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Message-ID", "relay-msg-1")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	g, err := NewWebhookGateway(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookGateway() error = %v", err)
	}

	receipt, err := g.Send(context.Background(), Push{
		Token: "device-token-1",
		Title: "New Post",
		Body:  "Someone you follow shared a new post",
		Data: map[string]string{
			"notification_id": "n1",
			"type":            "new_post",
		},
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if receipt.MessageID != "relay-msg-1" {
		t.Fatalf("MessageID = %q, want %q", receipt.MessageID, "relay-msg-1")
	}
	if gotBody.Token != "device-token-1" {
		t.Fatalf("request.token = %q, want %q", gotBody.Token, "device-token-1")
	}
	if gotBody.Notification.Title != "New Post" {
		t.Fatalf("request.notification.title = %q, want %q", gotBody.Notification.Title, "New Post")
	}
	if gotBody.Data["notification_id"] != "n1" {
		t.Fatalf("request.data.notification_id = %q, want n1", gotBody.Data["notification_id"])
	}
}

func TestWebhookGatewaySendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantPermanent bool
	}{
		{name: "not found means unregistered token", statusCode: http.StatusNotFound, wantPermanent: true},
		{name: "gone means unregistered token", statusCode: http.StatusGone, wantPermanent: true},
		{name: "bad request stays retryable", statusCode: http.StatusBadRequest, wantPermanent: false},
		{name: "too many requests stays retryable", statusCode: http.StatusTooManyRequests, wantPermanent: false},
		{name: "internal server error stays retryable", statusCode: http.StatusInternalServerError, wantPermanent: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("relay failed"))
			}))
			defer server.Close()

			g, err := NewWebhookGateway(server.URL)
			if err != nil {
				t.Fatalf("NewWebhookGateway() error = %v", err)
			}

			_, err = g.Send(context.Background(), Push{Token: "device-token-1", Title: "t", Body: "b"})
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsInvalidTarget(err); got != tc.wantPermanent {
				t.Fatalf("IsInvalidTarget() = %v, want %v", got, tc.wantPermanent)
			}
			if got := IsTransient(err); got == tc.wantPermanent {
				t.Fatalf("IsTransient() = %v, want %v", got, !tc.wantPermanent)
			}

			var sendErr *SendError
			if !errors.As(err, &sendErr) {
				t.Fatalf("expected SendError, got %T", err)
			}
			if sendErr.StatusCode != tc.statusCode {
				t.Fatalf("SendError.StatusCode = %d, want %d", sendErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestWebhookGatewaySendEmptyTokenPermanent(t *testing.T) {
	t.Parallel()

	g, err := NewWebhookGateway("http://localhost:1")
	if err != nil {
		t.Fatalf("NewWebhookGateway() error = %v", err)
	}

	_, err = g.Send(context.Background(), Push{Token: "   "})
	if !IsInvalidTarget(err) {
		t.Fatalf("IsInvalidTarget() = false for empty token, err = %v", err)
	}
}

func TestWebhookGatewaySendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	g, err := NewWebhookGatewayWithClient(server.URL, client)
	if err != nil {
		t.Fatalf("NewWebhookGatewayWithClient() error = %v", err)
	}

	_, err = g.Send(context.Background(), Push{Token: "device-token-1", Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
	if IsInvalidTarget(err) {
		t.Fatalf("IsInvalidTarget() = true for transport failure, err = %v", err)
	}
}
