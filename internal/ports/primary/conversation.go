// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which external actors use the application.
package primary

import (
	"context"
	"time"
)

// InboundMessage is a chat message as received from a transport.
type InboundMessage struct {
	ID         string
	SenderID   string
	Text       string
	IsFromSelf bool
	ReceivedAt time.Time
}

// Reply is what the bot answers to one message. An empty reply sends nothing.
type Reply struct {
	Texts []string
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool {
	return len(r.Texts) == 0
}

// ConversationService defines the primary port for chat conversations.
type ConversationService interface {
	// Handle processes one message of a sender. Messages of the same sender
	// must not be handled concurrently.
	Handle(ctx context.Context, msg InboundMessage) (Reply, error)
}
