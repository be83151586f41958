package delivery

import (
	"context"
	"fmt"

	"github.com/dmarkin/timed-notifier/internal/model"
)

// sender is the plain client surface shared by the channel clients in pkg.
type sender interface {
	Send(to string, msg string) error
}

// SenderAdapter turns a plain channel client into a Deliverer.
type SenderAdapter struct {
	sender sender
}

// NewSenderAdapter wraps a channel client.
func NewSenderAdapter(s sender) *SenderAdapter {
	return &SenderAdapter{sender: s}
}

// Deliver sends the notification content to its recipient. The underlying
// clients block for the duration of the send; ctx is only consulted before
// starting.
func (a *SenderAdapter) Deliver(ctx context.Context, n model.Notification) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := a.sender.Send(n.RecipientID, n.Content); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}
