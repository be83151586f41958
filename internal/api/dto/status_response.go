package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarkin/timed-notifier/internal/model"
	"github.com/dmarkin/timed-notifier/internal/schedule"
)

// Public delivery states shown to API clients. Several internal states
// collapse into one public state.
const (
	StatePending   = "Pending"
	StateSent      = "Sent"
	StateFailed    = "Failed"
	StateCancelled = "Cancelled"
)

// StatusResponse is the client-facing view of a notification.
type StatusResponse struct {
	ID                    uuid.UUID `json:"id"`
	RecipientID           string    `json:"recipient_id"`
	Content               string    `json:"content"`
	Channel               string    `json:"channel"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	ScheduledTime         time.Time `json:"scheduled_time"`
	Timezone              string    `json:"timezone"`
	LocalScheduledTime    string    `json:"local_scheduled_time"`
	AppropriateDelivery   bool      `json:"appropriate_delivery"`
	EstimatedDeliveryTime string    `json:"estimated_delivery_time,omitempty"`
	AttemptCount          int       `json:"attempt_count"`
}

// PublicState maps an internal status to the state shown to clients.
func PublicState(status model.Status) string {
	switch status {
	case model.StatusDelivered:
		return StateSent
	case model.StatusFailed:
		return StateFailed
	case model.StatusCancelled:
		return StateCancelled
	default:
		return StatePending
	}
}

// NewStatusResponse builds the client view of a notification. Times are
// rendered in the recipient's timezone; an unknown timezone falls back
// to UTC rather than failing the read.
func NewStatusResponse(n model.Notification, window schedule.Window) StatusResponse {
	loc, err := time.LoadLocation(n.Timezone)
	if err != nil {
		loc = time.UTC
	}

	local := n.ScheduledTime.In(loc)
	appropriate := window.Contains(local.Hour())

	resp := StatusResponse{
		ID:                  n.ID,
		RecipientID:         n.RecipientID,
		Content:             n.Content,
		Channel:             string(n.Channel),
		Status:              PublicState(n.Status),
		CreatedAt:           n.CreatedAt,
		ScheduledTime:       n.ScheduledTime,
		Timezone:            n.Timezone,
		LocalScheduledTime:  local.Format(time.RFC3339),
		AppropriateDelivery: appropriate,
		AttemptCount:        n.AttemptCount,
	}

	if n.Status == model.StatusScheduled || n.Status == model.StatusProcessing {
		resp.EstimatedDeliveryTime = window.Next(local, loc).Format(time.RFC3339)
	}

	return resp
}
