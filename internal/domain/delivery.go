package domain

import "time"

// Outcome classifies a single per-device delivery attempt.
type Outcome string

const (
	// OutcomeDelivered means the gateway accepted the message for the device.
	OutcomeDelivered Outcome = "DELIVERED"
	// OutcomeAlreadyDelivered means a prior attempt already succeeded and the
	// attempt was short-circuited without a gateway call.
	OutcomeAlreadyDelivered Outcome = "ALREADY_DELIVERED"
	// OutcomeInvalidTarget means the gateway permanently rejected the token;
	// the device has been deactivated.
	OutcomeInvalidTarget Outcome = "INVALID_TARGET"
	// OutcomeTransientFailure means the attempt failed but a later retry may
	// succeed; the delivery record stays undelivered.
	OutcomeTransientFailure Outcome = "TRANSIENT_FAILURE"
)

func (o Outcome) String() string { return string(o) }

// NotificationDelivery is the per-(notification, device) bookkeeping record.
// The pair is unique: at most one record per device per notification, created
// before the gateway is called. A redispatch that finds IsDelivered true is a
// no-op for that device, which is what makes retried dispatch idempotent.
type NotificationDelivery struct {
	ID             string
	NotificationID string
	DeviceID       string
	IsDelivered    bool
	DeliveredAt    *time.Time
	ErrorMessage   string
	CreatedAt      time.Time
}
