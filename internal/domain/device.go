package domain

import (
	"fmt"
	"strings"
	"time"
)

// Platform is the mobile platform a device token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "ANDROID"
	PlatformIOS     Platform = "IOS"
)

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS:
		return true
	}
	return false
}

func ParsePlatformFromString(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid platform %q", ErrValidation, s)
	}
	return p, nil
}

const MaxTokenLength = 500

// Device is a registered push endpoint belonging to a user. The dispatch
// pipeline reads active devices and flips IsActive to false when the gateway
// reports the token as permanently invalid.
type Device struct {
	ID         string
	UserID     string
	Token      string
	Platform   Platform
	HardwareID string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d *Device) Validate() error {
	if strings.TrimSpace(d.UserID) == "" {
		return fmt.Errorf("%w: user is required", ErrValidation)
	}
	if strings.TrimSpace(d.Token) == "" {
		return fmt.Errorf("%w: push token is required", ErrValidation)
	}
	if len(d.Token) > MaxTokenLength {
		return fmt.Errorf("%w: push token exceeds %d characters", ErrValidation, MaxTokenLength)
	}
	if !d.Platform.IsValid() {
		return fmt.Errorf("%w: invalid platform %q", ErrValidation, d.Platform)
	}
	return nil
}
