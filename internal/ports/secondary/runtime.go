package secondary

import (
	"context"

	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/models"
)

// SessionStore holds conversation sessions by sender id.
type SessionStore interface {
	// Get returns the live session for a sender.
	Get(ctx context.Context, senderID string) (*session.Session, bool)

	// Set stores or replaces a session.
	Set(ctx context.Context, s *session.Session)

	// Delete drops a sender's session.
	Delete(ctx context.Context, senderID string)
}

// Roster is read-only lookup data: buses and authorized users.
type Roster interface {
	Bus(code string) (models.Bus, bool)
	Buses() []models.Bus
	User(id string) (models.User, bool)
	// Authorized reports whether a sender may talk to the bot. An empty user
	// list authorizes everyone.
	Authorized(senderID string) bool
}

// MessageSender delivers text to a chat recipient. Delivery is fire-and-forget;
// callers log failures and do not retry.
type MessageSender interface {
	Send(ctx context.Context, recipientID, text string) error
}
