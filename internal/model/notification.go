package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidState is returned when an operation is not legal for the
// notification's current status.
var ErrInvalidState = errors.New("invalid notification state")

// Status represents the lifecycle state of a notification.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final. A notification is never
// revived out of a terminal status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// transitions holds the legal status edges:
// scheduled -> processing | cancelled, processing -> delivered | failed.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusDelivered, StatusFailed},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Channel represents the delivery channel of a notification.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Valid reports whether the channel is one of the supported channels.
func (c Channel) Valid() bool {
	return c == ChannelPush || c == ChannelEmail
}

// Notification represents a time-targeted notification entity.
type Notification struct {
	ID            uuid.UUID `json:"id"`             // unique identifier, assigned at creation
	RecipientID   string    `json:"recipient_id"`   // opaque recipient identifier
	Content       string    `json:"content"`        // message content
	Channel       Channel   `json:"channel"`        // delivery channel, push or email
	Timezone      string    `json:"timezone"`       // IANA timezone of the recipient
	CreatedAt     time.Time `json:"created_at"`     // set once at creation
	ScheduledTime time.Time `json:"scheduled_time"` // effective delivery time after the hours policy
	Status        Status    `json:"status"`         // current lifecycle state
	AttemptCount  int       `json:"attempt_count"`  // failed delivery attempts so far
	TaskID        uuid.UUID `json:"task_id"`        // most recently enqueued task for this notification
	Priority      int       `json:"priority"`       // caller-supplied base priority, 1-10
}

// Transition moves the notification to the next status, enforcing the
// state machine.
func (n *Notification) Transition(next Status) error {
	if !n.Status.CanTransition(next) {
		return fmt.Errorf("transition %s -> %s: %w", n.Status, next, ErrInvalidState)
	}
	n.Status = next
	return nil
}
