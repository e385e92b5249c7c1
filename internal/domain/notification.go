package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the domain event a notification was created for.
type Kind string

const (
	KindNewPost    Kind = "NEW_POST"
	KindNewComment Kind = "NEW_COMMENT"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindNewPost, KindNewComment:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid notification kind %q", ErrValidation, s)
	}
	return k, nil
}

// Title returns the user-facing title for the kind.
func (k Kind) Title() string {
	switch k {
	case KindNewPost:
		return "New Post"
	case KindNewComment:
		return "New Comment"
	}
	return ""
}

const MaxTitleLength = 255

// Notification is one "tell recipient R about event E" record. It exists
// independently of push delivery success: a recipient with no reachable
// device still sees it through the inbox API.
type Notification struct {
	ID          string
	EventID     string
	RecipientID string
	SenderID    string
	Kind        Kind
	Title       string
	Message     string
	PostID      *string
	CommentID   *string
	ActionData  map[string]string
	IsRead      bool
	IsSent      bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.RecipientID) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(n.SenderID) == "" {
		return fmt.Errorf("%w: sender is required", ErrValidation)
	}
	if n.RecipientID == n.SenderID {
		return fmt.Errorf("%w: recipient and sender must differ", ErrValidation)
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("%w: invalid notification kind %q", ErrValidation, n.Kind)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len([]rune(n.Title)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if n.IsRead != (n.ReadAt != nil) {
		return fmt.Errorf("%w: read_at must be set exactly when is_read is true", ErrValidation)
	}
	return nil
}
