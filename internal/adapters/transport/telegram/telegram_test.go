package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestToInbound(t *testing.T) {
	tests := []struct {
		name     string
		msg      *tgbotapi.Message
		wantText string
		wantSelf bool
	}{
		{
			name: "plain text",
			msg: &tgbotapi.Message{
				MessageID: 7,
				From:      &tgbotapi.User{ID: 42},
				Chat:      &tgbotapi.Chat{ID: 1001},
				Text:      "Diesel 500",
				Date:      1762338600,
			},
			wantText: "Diesel 500",
		},
		{
			name: "bot command",
			msg: &tgbotapi.Message{
				MessageID: 8,
				From:      &tgbotapi.User{ID: 42},
				Chat:      &tgbotapi.Chat{ID: 1001},
				Text:      "/deposit 500",
				Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 8}},
			},
			wantText: "deposit 500",
		},
		{
			name: "own message",
			msg: &tgbotapi.Message{
				MessageID: 9,
				From:      &tgbotapi.User{ID: 99},
				Chat:      &tgbotapi.Chat{ID: 1001},
				Text:      "Saved",
			},
			wantText: "Saved",
			wantSelf: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToInbound(tt.msg, 99)
			if got.Text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, got.Text)
			}
			if got.SenderID != "1001" {
				t.Errorf("expected chat id as sender, got %q", got.SenderID)
			}
			if got.IsFromSelf != tt.wantSelf {
				t.Errorf("expected IsFromSelf %v, got %v", tt.wantSelf, got.IsFromSelf)
			}
		})
	}
}
