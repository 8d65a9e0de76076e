// Package notify fans out staff notifications. Delivery is fire-and-forget:
// failures are logged, never retried or propagated.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raketaclean/cleanbot/internal/clients"
)

// Sender is the outbound side of the chat transport. *tgbotapi.BotAPI
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends admin and signup-log messages.
type Notifier struct {
	sender     Sender
	adminIDs   []int64
	logsChatID int64
	logger     *slog.Logger
}

// NewNotifier creates a notifier for the given admin chat ids. logsChatID 0
// disables signup logging.
func NewNotifier(log *slog.Logger, sender Sender, adminIDs []int64, logsChatID int64) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		sender:     sender,
		adminIDs:   adminIDs,
		logsChatID: logsChatID,
		logger:     log.With(slog.String("service", "notify")),
	}
}

// NotifyAdmins delivers text to every configured admin, best-effort.
func (n *Notifier) NotifyAdmins(text string) {
	if len(n.adminIDs) == 0 {
		n.logger.Warn("no admin ids configured, notification dropped")
		return
	}
	for _, adminID := range n.adminIDs {
		if _, err := n.sender.Send(tgbotapi.NewMessage(adminID, text)); err != nil {
			n.logger.Error("notify admin failed",
				slog.Int64("admin_id", adminID),
				slog.Any("error", err),
			)
		}
	}
}

// LogSignup posts a new-subscriber summary to the logs chat, best-effort.
func (n *Notifier) LogSignup(client clients.Client, user clients.ChatUser, bonusAmount int, merged bool) {
	if n.logsChatID == 0 {
		return
	}
	username := "—"
	if user.Username != "" {
		username = "@" + user.Username
	}
	phone := client.Phone
	if phone == "" {
		phone = "не указан"
	}
	mergeNote := ""
	if merged {
		mergeNote = " (объединен с существующим клиентом)"
	}
	name := client.Name
	if name == "" {
		name = user.FullName()
	}
	lines := []string{
		"🆕 Новый подписчик клиентского бота",
		fmt.Sprintf("ID клиента: %d", client.ID),
		"Имя: " + name,
		"Телефон: " + phone,
		"Telegram: " + username,
		fmt.Sprintf("TG ID: %d", user.ID),
		fmt.Sprintf("✅ бонус %d начислен%s", bonusAmount, mergeNote),
	}
	if _, err := n.sender.Send(tgbotapi.NewMessage(n.logsChatID, strings.Join(lines, "\n"))); err != nil {
		n.logger.Warn("signup log failed", slog.Any("error", err))
	}
}

// FormatInquiry renders a customer question or order for admin delivery.
func FormatInquiry(kind string, user clients.ChatUser, client *clients.Client, text string) string {
	phone := "не указан"
	if client != nil && client.Phone != "" {
		phone = client.Phone
	}
	username := "—"
	if user.Username != "" {
		username = "@" + user.Username
	}
	if text == "" {
		text = "—"
	}
	lines := []string{
		"📩 " + kind,
		"Имя: " + user.FullName(),
		"Username: " + username,
		fmt.Sprintf("TG ID: %d", user.ID),
		"Телефон: " + phone,
		"",
		text,
	}
	return strings.Join(lines, "\n")
}
