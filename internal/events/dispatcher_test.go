package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_DeliversToSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var calls []string

	d.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketResolved, func(_ context.Context, e Event) error {
		calls = append(calls, "resolved")
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned, TicketID: "t-1"}))
	assert.Equal(t, []string{"first:t-1", "second:t-1"}, calls)
}

func TestDispatcher_HandlerErrorIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))
	reached := false

	d.Subscribe(EventTicketCreated, func(context.Context, Event) error { return errors.New("boom") })
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-9"}))
	assert.True(t, reached)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}
