package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseKindFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr bool
	}{
		{name: "valid uppercase", input: "NEW_POST", want: KindNewPost},
		{name: "valid lowercase with spaces", input: " new_comment ", want: KindNewComment},
		{name: "invalid", input: "new_like", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseKindFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseKindFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseKindFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseKindFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindTitle(t *testing.T) {
	t.Parallel()

	if got := KindNewPost.Title(); got != "New Post" {
		t.Fatalf("KindNewPost.Title() = %q, want %q", got, "New Post")
	}
	if got := KindNewComment.Title(); got != "New Comment" {
		t.Fatalf("KindNewComment.Title() = %q, want %q", got, "New Comment")
	}
	if got := Kind("NEW_LIKE").Title(); got != "" {
		t.Fatalf("unknown kind Title() = %q, want empty", got)
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	readAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	base := Notification{
		RecipientID: "user-1",
		SenderID:    "user-2",
		Kind:        KindNewPost,
		Title:       "New Post",
		Message:     "Someone you follow shared a new post",
	}

	tests := []struct {
		name    string
		mutate  func(*Notification)
		wantErr bool
	}{
		{
			name: "valid notification",
			mutate: func(n *Notification) {
				// keep base
			},
		},
		{
			name: "missing recipient",
			mutate: func(n *Notification) {
				n.RecipientID = ""
			},
			wantErr: true,
		},
		{
			name: "missing sender",
			mutate: func(n *Notification) {
				n.SenderID = ""
			},
			wantErr: true,
		},
		{
			name: "recipient equals sender",
			mutate: func(n *Notification) {
				n.RecipientID = "user-2"
			},
			wantErr: true,
		},
		{
			name: "invalid kind",
			mutate: func(n *Notification) {
				n.Kind = Kind("NEW_LIKE")
			},
			wantErr: true,
		},
		{
			name: "missing title",
			mutate: func(n *Notification) {
				n.Title = ""
			},
			wantErr: true,
		},
		{
			name: "title over limit",
			mutate: func(n *Notification) {
				n.Title = strings.Repeat("a", MaxTitleLength+1)
			},
			wantErr: true,
		},
		{
			name: "rune-aware title length accepted",
			mutate: func(n *Notification) {
				n.Title = strings.Repeat("ğ", MaxTitleLength)
			},
		},
		{
			name: "missing message",
			mutate: func(n *Notification) {
				n.Message = ""
			},
			wantErr: true,
		},
		{
			name: "read without timestamp",
			mutate: func(n *Notification) {
				n.IsRead = true
				n.ReadAt = nil
			},
			wantErr: true,
		},
		{
			name: "timestamp without read flag",
			mutate: func(n *Notification) {
				n.IsRead = false
				n.ReadAt = &readAt
			},
			wantErr: true,
		},
		{
			name: "read with timestamp",
			mutate: func(n *Notification) {
				n.IsRead = true
				n.ReadAt = &readAt
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}
