// Package bot is the Telegram presentation layer: the long-poll update
// loop, the menu flow, and the glue between inbound events and the
// reconciliation core.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketaclean/cleanbot/internal/bonus"
	"github.com/raketaclean/cleanbot/internal/clients"
	"github.com/raketaclean/cleanbot/internal/leads"
	"github.com/raketaclean/cleanbot/internal/notify"
	"github.com/raketaclean/cleanbot/internal/reconcile"
	"github.com/raketaclean/cleanbot/internal/subscription"
)

// clientResolver is the slice of the reconciliation core the handlers use.
// *reconcile.Reconciler satisfies it; tests substitute a stub.
type clientResolver interface {
	Reconcile(ctx context.Context, user clients.ChatUser, rawPhone, displayName string) (clients.Client, bool, error)
	Lookup(ctx context.Context, chatID int64) (*clients.Client, error)
}

// Bot runs the Telegram side of the client bot.
type Bot struct {
	api        *tgbotapi.BotAPI
	sender     notify.Sender
	pool       *pgxpool.Pool
	reconciler clientResolver
	ledger     *bonus.Ledger
	tracker    *subscription.Tracker
	leads      *leads.Service
	notifier   *notify.Notifier
	states     *stateStore
	logger     *slog.Logger
}

// New creates the bot over an authorized Telegram API client.
func New(
	log *slog.Logger,
	api *tgbotapi.BotAPI,
	pool *pgxpool.Pool,
	reconciler *reconcile.Reconciler,
	ledger *bonus.Ledger,
	tracker *subscription.Tracker,
	leadService *leads.Service,
	notifier *notify.Notifier,
) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		api:        api,
		sender:     api,
		pool:       pool,
		reconciler: reconciler,
		ledger:     ledger,
		tracker:    tracker,
		leads:      leadService,
		notifier:   notifier,
		states:     newStateStore(),
		logger:     log.With(slog.String("service", "bot")),
	}
}

// Run drops any stale webhook and long-polls for updates until ctx is
// cancelled. Each update is dispatched on its own goroutine; ordering for
// the same client is enforced by the database, not the loop.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start", slog.String("bot", b.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stop")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return nil
			}
			go b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.MyChatMember != nil:
		b.handleChatMember(ctx, update.MyChatMember)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// reply sends an HTML-formatted message to the chat. Permanent delivery
// failures flip the client's reachability flag instead of propagating.
func (b *Bot) reply(ctx context.Context, chatID int64, text string, keyboard any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.sender.Send(msg); err != nil {
		if isPermanentDeliveryFailure(err) {
			b.logger.Warn("recipient unreachable", slog.Int64("chat_id", chatID), slog.Any("error", err))
			if trackErr := b.tracker.MarkUnreachable(ctx, chatID); trackErr != nil {
				b.logger.Error("mark unreachable failed", slog.Int64("chat_id", chatID), slog.Any("error", trackErr))
			}
			return
		}
		b.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// isPermanentDeliveryFailure matches the Telegram error strings that mean
// the recipient can no longer be reached at all.
func isPermanentDeliveryFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"blocked by the user",
		"user is deactivated",
		"user is deleted",
		"chat not found",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
