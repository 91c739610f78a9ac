package notify

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends events to per-user Telegram chats.
type Telegram struct {
	bot *tgbotapi.BotAPI

	mu    sync.RWMutex
	chats map[string]int64 // userID -> chat id
}

// NewTelegram creates a Telegram notifier from a bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{
		bot:   bot,
		chats: make(map[string]int64),
	}, nil
}

// Register binds a user id to a Telegram chat. Events for unregistered users
// are dropped silently.
func (t *Telegram) Register(userID string, chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats[userID] = chatID
}

// Send delivers one event to the user's chat.
func (t *Telegram) Send(ctx context.Context, userID string, event Event) error {
	t.mu.RLock()
	chatID, ok := t.chats[userID]
	t.mu.RUnlock()
	if !ok {
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s\n%s", event.Title, event.Message))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

// Close stops the underlying bot.
func (t *Telegram) Close() error {
	t.bot.StopReceivingUpdates()
	return nil
}
