package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type InboxService interface {
	List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type NotificationHandler struct {
	service InboxService
}

func NewNotificationHandler(service InboxService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("inbox service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service InboxService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	router.Get("/notifications", h.ListNotifications)
	router.Get("/notifications/unread", h.ListUnreadNotifications)
	router.Get("/notifications/unread/count", h.CountUnread)
	router.Post("/notifications/read-all", h.MarkAllRead)
	router.Post("/notifications/:id/read", h.MarkRead)

	return nil
}

type notificationResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	SenderID   string            `json:"senderId"`
	PostID     *string           `json:"postId,omitempty"`
	CommentID  *string           `json:"commentId,omitempty"`
	ActionData map[string]string `json:"actionData,omitempty"`
	IsRead     bool              `json:"isRead"`
	CreatedAt  time.Time         `json:"createdAt"`
	ReadAt     *time.Time        `json:"readAt,omitempty"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	return h.list(c, false)
}

func (h *NotificationHandler) ListUnreadNotifications(c *fiber.Ctx) error {
	return h.list(c, true)
}

func (h *NotificationHandler) list(c *fiber.Ctx, unreadOnly bool) error {
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.List(c.Context(), AuthenticatedUserID(c), unreadOnly, page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(notifications),
		Meta: listMeta{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func (h *NotificationHandler) CountUnread(c *fiber.Ctx) error {
	count, err := h.service.CountUnread(c.Context(), AuthenticatedUserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.MarkRead(c.Context(), AuthenticatedUserID(c), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notificationId": id,
		"isRead":         true,
	})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	count, err := h.service.MarkAllRead(c.Context(), AuthenticatedUserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"markedRead": count,
	})
}

func parsePageParams(c *fiber.Ctx) (int, int, error) {
	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)

	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	return page, pageSize, nil
}

func toNotificationResponses(notifications []domain.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}
	return responses
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:         n.ID,
		Type:       n.Kind.String(),
		Title:      n.Title,
		Message:    n.Message,
		SenderID:   n.SenderID,
		PostID:     n.PostID,
		CommentID:  n.CommentID,
		ActionData: n.ActionData,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
		ReadAt:     n.ReadAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
