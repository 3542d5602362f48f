// Package telegram exposes per-user concept memory as a Telegram bot.
package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"concept-memory/internal/sessions"
	"concept-memory/internal/storage"
)

// sender is the part of the Bot API used for replies.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	s        sender
	sessions *sessions.Manager
	journal  storage.Journal
	allowed  map[int64]bool
	logger   *zap.Logger
	now      func() time.Time
}

// New connects to the Bot API. An empty allowed list lets everyone in. journal
// may be nil.
func New(botToken string, mgr *sessions.Manager, journal storage.Journal, allowed []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(api, mgr, journal, allowed, logger)
	b.api = api
	b.logger.Info("authorized on telegram", zap.String("bot", api.Self.UserName))
	return b, nil
}

func newBot(s sender, mgr *sessions.Manager, journal storage.Journal, allowed []int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		s:        s,
		sessions: mgr,
		journal:  journal,
		allowed:  make(map[int64]bool, len(allowed)),
		logger:   logger,
		now:      time.Now,
	}
	for _, id := range allowed {
		b.allowed[id] = true
	}
	return b
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID]
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, "ACCESS DENIED")
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}
	b.handleText(ctx, msg)
}

// Notify sends a bot-initiated message, such as a scheduled report.
func (b *Bot) Notify(chatID int64, text string) {
	b.sendMessage(chatID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
