// Package telegram is the Telegram Bot API chat transport.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/fleetbot/internal/adapters/transport"
	"github.com/example/fleetbot/internal/app"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// Transport long-polls Telegram for updates and sends replies to chats.
// Sender ids are chat ids.
type Transport struct {
	bot     *tgbotapi.BotAPI
	logger  *slog.Logger
	timeout int
}

var _ secondary.MessageSender = (*Transport)(nil)

// New connects to the Bot API with the given token.
func New(token string, logger *slog.Logger) (*Transport, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram connected", "bot", bot.Self.UserName)
	return &Transport{bot: bot, logger: logger, timeout: 60}, nil
}

// Send delivers text to a chat.
func (t *Transport) Send(ctx context.Context, recipientID, text string) error {
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", recipientID, err)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Run feeds updates into the queue until ctx is done.
func (t *Transport) Run(ctx context.Context, queue transport.Queue) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.timeout
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			msg := ToInbound(update.Message, t.bot.Self.ID)
			if err := queue.Enqueue(ctx, msg); err != nil && !errors.Is(err, app.ErrDropped) {
				t.logger.Warn("inbound message rejected", "sender", msg.SenderID, "error", err)
			}
		}
	}
}

// ToInbound converts a Telegram message. A bot command such as "/deposit 500"
// becomes the plain text "deposit 500".
func ToInbound(m *tgbotapi.Message, selfID int64) primary.InboundMessage {
	text := m.Text
	if m.IsCommand() {
		text = strings.TrimSpace(m.Command() + " " + m.CommandArguments())
	}
	msg := primary.InboundMessage{
		ID:         strconv.Itoa(m.MessageID),
		Text:       text,
		ReceivedAt: m.Time(),
	}
	if m.Chat != nil {
		msg.SenderID = strconv.FormatInt(m.Chat.ID, 10)
	}
	if m.From != nil {
		msg.IsFromSelf = m.From.ID == selfID
	}
	return msg
}
