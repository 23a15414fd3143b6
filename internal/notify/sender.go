// Package notify delivers out-of-band notifications such as the resolution
// email sent to a ticket owner.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single outbound notification.
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	TicketID string   `json:"ticket_id,omitempty"`
}

// Sender delivers messages on one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// MultiSender fans a message out to every configured channel. All channels
// are attempted; failures are joined.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender wraps senders.
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

func (m *MultiSender) Name() string {
	return "multi"
}

func (m *MultiSender) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m.senders {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped channels.
func (m *MultiSender) Len() int {
	return len(m.senders)
}
