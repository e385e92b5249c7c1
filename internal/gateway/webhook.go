package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type webhookRequest struct {
	Token        string              `json:"token"`
	Notification webhookNotification `json:"notification"`
	Data         map[string]string   `json:"data,omitempty"`
}

// WebhookGateway posts pushes to an HTTP endpoint speaking the gateway wire
// contract. Used for local development and self-hosted push relays; 404/410
// mean the relay no longer knows the token.
type WebhookGateway struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookGateway(endpoint string) (*WebhookGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookGatewayWithClient(endpoint, client)
}

func NewWebhookGatewayWithClient(endpoint string, client *resty.Client) (*WebhookGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookGateway{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *WebhookGateway) Send(ctx context.Context, push Push) (*Receipt, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("webhook gateway is not initialized")
	}
	if strings.TrimSpace(push.Token) == "" {
		return nil, &SendError{
			Message:   "push token is empty",
			Permanent: true,
		}
	}

	reqBody := webhookRequest{
		Token: push.Token,
		Notification: webhookNotification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: push.Data,
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(g.endpoint)
	if err != nil {
		// Transport failures never condemn the token.
		return nil, &SendError{
			Message: "gateway request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &SendError{
			Message: "gateway returned empty response",
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Receipt{MessageID: webhookMessageID(response)}, nil
	}

	return nil, &SendError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("gateway returned status %d", statusCode),
		Permanent:  isInvalidTargetHTTPStatus(statusCode),
	}
}

// isInvalidTargetHTTPStatus reports whether the relay signals a token it no
// longer recognizes. Everything else, including 4xx, is left retryable.
func isInvalidTargetHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode == http.StatusGone
}

func webhookMessageID(response *resty.Response) string {
	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}
	return ""
}

var _ Sender = (*WebhookGateway)(nil)
