package gateway

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMGateway delivers pushes through Firebase Cloud Messaging. The messaging
// client is created once at process start and injected; per call the gateway
// holds no state.
type FCMGateway struct {
	client *messaging.Client
}

// NewFCMGateway initializes the Firebase app from a service account
// credentials file and returns a ready-to-use gateway. Misconfiguration is
// fatal here rather than surfacing later as per-send errors.
func NewFCMGateway(ctx context.Context, credentialsFile string) (*FCMGateway, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("fcm credentials file is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fcm messaging client: %w", err)
	}

	return &FCMGateway{client: client}, nil
}

func NewFCMGatewayWithClient(client *messaging.Client) (*FCMGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("fcm messaging client is required")
	}
	return &FCMGateway{client: client}, nil
}

func (g *FCMGateway) Send(ctx context.Context, push Push) (*Receipt, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("fcm gateway is not initialized")
	}
	if strings.TrimSpace(push.Token) == "" {
		return nil, &SendError{
			Message:   "push token is empty",
			Permanent: true,
		}
	}

	msg := &messaging.Message{
		Token: push.Token,
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: push.Data,
	}

	messageID, err := g.client.Send(ctx, msg)
	if err != nil {
		return nil, classifyFCMError(err)
	}

	return &Receipt{MessageID: messageID}, nil
}

// classifyFCMError maps the FCM "unregistered" signal to a permanent error
// and everything else to transient.
func classifyFCMError(err error) error {
	if messaging.IsUnregistered(err) {
		return &SendError{
			Message:   "fcm token is unregistered",
			Permanent: true,
			Cause:     err,
		}
	}

	return &SendError{
		Message:   "fcm send failed",
		Permanent: false,
		Cause:     err,
	}
}

var _ Sender = (*FCMGateway)(nil)
