package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "permanent send error", err: &SendError{Permanent: true}, want: false},
		{name: "transient send error", err: &SendError{StatusCode: 503}, want: true},
		{name: "wrapped send error", err: fmt.Errorf("push failed: %w", &SendError{Permanent: true}), want: false},
		{name: "unknown error defaults to retryable", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInvalidTarget(t *testing.T) {
	t.Parallel()

	if IsInvalidTarget(errors.New("boom")) {
		t.Fatal("plain errors must not read as invalid target")
	}
	if IsInvalidTarget(&SendError{StatusCode: 500}) {
		t.Fatal("transient send errors must not read as invalid target")
	}
	if !IsInvalidTarget(fmt.Errorf("push failed: %w", &SendError{Permanent: true})) {
		t.Fatal("wrapped permanent send errors must read as invalid target")
	}
}
