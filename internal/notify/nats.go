package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the sender uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSender publishes notifications as JSON for downstream mailers.
type NATSSender struct {
	pub     Publisher
	subject string
}

// NewNATSSender wraps an established publisher.
func NewNATSSender(pub Publisher, subject string) *NATSSender {
	return &NATSSender{pub: pub, subject: subject}
}

// ConnectNATS dials url and returns a sender bound to subject.
func ConnectNATS(url, subject string) (*NATSSender, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("helpdesk-service"))
	if err != nil {
		return nil, nil, err
	}
	return NewNATSSender(nc, subject), nc, nil
}

func (n *NATSSender) Name() string {
	return "nats"
}

func (n *NATSSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.pub.Publish(n.subject, payload)
}
