// Package transport holds the chat transports. Each one turns platform
// messages into primary.InboundMessage values and delivers replies as a
// secondary.MessageSender.
package transport

import (
	"context"

	"github.com/example/fleetbot/internal/ports/primary"
)

// Queue accepts inbound messages for asynchronous handling.
type Queue interface {
	Enqueue(ctx context.Context, msg primary.InboundMessage) error
}

// Dispatcher handles an inbound message and returns the reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg primary.InboundMessage) (primary.Reply, error)
}
