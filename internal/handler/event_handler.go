package handler

import (
	"fmt"
	"strings"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/queue"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EventHandler accepts producer events (new post, new comment) and enqueues
// them for asynchronous fan-out. Producers are internal services, so the
// endpoint sits behind the same authentication as the user surface.
type EventHandler struct {
	publisher queue.Publisher
}

func NewEventHandler(publisher queue.Publisher) (*EventHandler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &EventHandler{publisher: publisher}, nil
}

func RegisterEventRoutes(router fiber.Router, publisher queue.Publisher) error {
	h, err := NewEventHandler(publisher)
	if err != nil {
		return err
	}

	router.Post("/events", h.PublishEvent)
	return nil
}

type publishEventRequest struct {
	EventID      string            `json:"eventId"`
	Kind         string            `json:"kind"`
	SenderID     string            `json:"senderId"`
	RecipientIDs []string          `json:"recipientIds"`
	PostID       *string           `json:"postId"`
	CommentID    *string           `json:"commentId"`
	Body         string            `json:"body"`
	ActionData   map[string]string `json:"actionData"`
}

func (h *EventHandler) PublishEvent(c *fiber.Ctx) error {
	var req publishEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}

	msg := queue.EventMessage{
		EventID:       strings.TrimSpace(req.EventID),
		CorrelationID: requestCorrelationID(c),
		Kind:          kind,
		SenderID:      strings.TrimSpace(req.SenderID),
		RecipientIDs:  req.RecipientIDs,
		PostID:        req.PostID,
		CommentID:     req.CommentID,
		Body:          strings.TrimSpace(req.Body),
		ActionData:    req.ActionData,
	}
	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}

	if err := msg.Validate(); err != nil {
		return toHTTPError(fmt.Errorf("%w: %s", domain.ErrValidation, err))
	}

	if err := h.publisher.Publish(c.Context(), queue.EventQueue, msg); err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"eventId":    msg.EventID,
		"recipients": len(msg.RecipientIDs),
	})
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
