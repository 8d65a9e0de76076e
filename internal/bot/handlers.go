package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raketaclean/cleanbot/internal/clients"
	"github.com/raketaclean/cleanbot/internal/notify"
	"github.com/raketaclean/cleanbot/internal/reconcile"
)

var manualPhonePattern = regexp.MustCompile(`^9\d{9}$`)

// moscowTZ is used to render bonus expiry dates for customers.
var moscowTZ = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.UTC
	}
	return loc
}()

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || msg.Chat.Type != "private" {
		return
	}
	user := chatUserFrom(msg.From)
	chatID := msg.Chat.ID

	if msg.Contact != nil {
		b.handleContact(ctx, chatID, user, msg.Contact)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, chatID, user)
		case "info":
			b.handleInfo(ctx, chatID, user)
		case "cancel":
			b.handleCancel(ctx, chatID, user)
		default:
			b.handleFallback(ctx, chatID, user, msg.Text)
		}
		return
	}

	switch b.states.get(chatID) {
	case stateAwaitingPhone:
		b.handleManualPhone(ctx, chatID, user, msg.Text)
		return
	case stateAwaitingQuestion:
		b.handleInquiry(ctx, chatID, user, "Вопрос от клиента", msg.Text,
			"Передал вопрос администратору. Ответим как можно скорее!")
		return
	case stateAwaitingOrder:
		b.handleInquiry(ctx, chatID, user, "Заявка на заказ", msg.Text,
			"Заказ передан администратору. Мы свяжемся, чтобы уточнить детали.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.EqualFold(text, btnBonus):
		b.handleBonuses(ctx, chatID, user)
	case strings.EqualFold(text, btnShareContact):
		b.handleSharePrompt(ctx, chatID)
	case strings.EqualFold(text, btnQuestion):
		b.handleInquiryPrompt(ctx, chatID, user, stateAwaitingQuestion,
			"Опишите ваш вопрос. Чтобы отменить, напишите «Отмена».")
	case strings.EqualFold(text, btnOrder):
		b.handleInquiryPrompt(ctx, chatID, user, stateAwaitingOrder,
			"Расскажите, какая услуга нужна. Пока просто передаю текст администратору.")
	case strings.EqualFold(text, btnPrice):
		b.handlePrice(ctx, chatID)
	case strings.EqualFold(text, btnSchedule):
		b.handleSchedule(ctx, chatID)
	case strings.EqualFold(text, btnCancel):
		b.handleCancel(ctx, chatID, user)
	default:
		b.handleFallback(ctx, chatID, user, msg.Text)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, user clients.ChatUser) {
	b.states.clear(chatID)
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		b.reply(ctx, chatID, "Что-то пошло не так, попробуйте ещё раз чуть позже.", nil)
		return
	}

	if client == nil {
		b.reply(ctx, chatID,
			"Привет! 👋\n\n"+
				"Этот бот будет присылать бонусы, акции и напоминания от RaketaClean.\n\n"+
				"⚠️ <b>Важно:</b> Чтобы пользоваться ботом, нужно указать номер телефона.\n"+
				"Поделитесь номером через кнопку ниже или введите его вручную (формат: 9XXXXXXXXX).",
			mainMenu(true),
		)
		return
	}
	if reconcile.NeedsPhone(client) {
		b.reply(ctx, chatID,
			"Привет! 👋\n\n"+
				"⚠️ <b>Важно:</b> Чтобы пользоваться ботом, нужно указать номер телефона.\n"+
				"Поделитесь номером через кнопку ниже или введите его вручную (формат: 9XXXXXXXXX).",
			mainMenu(true),
		)
		return
	}
	b.reply(ctx, chatID, "Привет! 👋\n\nВыберите действие через меню:", mainMenu(false))
}

func (b *Bot) handleInfo(ctx context.Context, chatID int64, user clients.ChatUser) {
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}
	b.reply(ctx, chatID,
		"Я могу показать бонусы или передать ваше сообщение администратору.",
		mainMenu(reconcile.NeedsPhone(client)),
	)
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64, user clients.ChatUser) {
	b.states.clear(chatID)
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
	b.reply(ctx, chatID, "Ок, вернулись в главное меню.", mainMenu(reconcile.NeedsPhone(client)))
}

func (b *Bot) handleContact(ctx context.Context, chatID int64, user clients.ChatUser, contact *tgbotapi.Contact) {
	// Reject contacts belonging to someone else: the bonus goes to the
	// verified owner of the number.
	if contact.UserID != 0 && contact.UserID != user.ID {
		b.reply(ctx, chatID, "Пожалуйста, поделитесь собственным номером через кнопку.", contactKeyboard())
		return
	}
	name := strings.TrimSpace(strings.TrimSpace(contact.FirstName) + " " + strings.TrimSpace(contact.LastName))
	if name == "" {
		name = user.FullName()
	}
	b.confirmPhone(ctx, chatID, user, contact.PhoneNumber, name,
		"Спасибо! Номер сохранён. Теперь можете пользоваться меню.")
}

func (b *Bot) handleManualPhone(ctx context.Context, chatID int64, user clients.ChatUser, text string) {
	text = strings.TrimSpace(text)
	if !manualPhonePattern.MatchString(text) {
		b.reply(ctx, chatID,
			"❌ Неверный формат номера. Введите номер в формате: <b>9XXXXXXXXX</b> (10 цифр, начинается с 9)\n\n"+
				"Или нажмите кнопку ниже, чтобы поделиться номером автоматически.",
			contactKeyboard(),
		)
		return
	}
	b.confirmPhone(ctx, chatID, user, text, user.FullName(),
		"✅ Номер сохранён! Теперь можете пользоваться всеми функциями бота.")
}

// confirmPhone runs reconciliation for a submitted phone number. On failure
// the awaiting-phone state is kept so the user can simply retry.
func (b *Bot) confirmPhone(ctx context.Context, chatID int64, user clients.ChatUser, rawPhone, name, successText string) {
	client, merged, err := b.reconciler.Reconcile(ctx, user, rawPhone, name)
	if err != nil {
		b.logger.Error("reconcile failed",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err),
		)
		b.reply(ctx, chatID,
			"Не получилось подтвердить номер, попробуйте ещё раз или нажмите кнопку ниже.",
			contactKeyboard(),
		)
		return
	}
	b.states.clear(chatID)

	b.sendBonusSummary(ctx, chatID, client.ID)
	b.notifier.LogSignup(client, user, b.ledger.Amount(), merged)
	b.reply(ctx, chatID, successText, mainMenu(reconcile.NeedsPhone(&client)))
}

func (b *Bot) sendBonusSummary(ctx context.Context, chatID, clientID int64) {
	balance, expiresAt, err := b.ledger.Balance(ctx, b.pool, clientID)
	if err != nil {
		b.logger.Error("read bonus info failed", slog.Int64("client_id", clientID), slog.Any("error", err))
		return
	}
	lines := []string{
		fmt.Sprintf("✅ Вам начислено %d бонусов за подписку! 🎁", b.ledger.Amount()),
		fmt.Sprintf("Текущий баланс: <b>%d</b> бонусов", balance),
	}
	if expiresAt != nil {
		lines = append(lines, "Срок действия новых бонусов: до "+expiresAt.In(moscowTZ).Format("02.01.2006"))
	}
	lines = append(lines,
		"",
		"Теперь вам доступны функции:",
		"• Задать вопрос",
		"• Сделать заказ",
		"• Посмотреть бонусы",
	)
	b.reply(ctx, chatID, strings.Join(lines, "\n"), nil)
}

func (b *Bot) handleBonuses(ctx context.Context, chatID int64, user clients.ChatUser) {
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}
	if client == nil {
		b.reply(ctx, chatID,
			"Не нашёл ваш профиль. Напишите администратору или попробуйте позже.",
			mainMenu(true),
		)
		return
	}
	if reconcile.NeedsPhone(client) {
		b.reply(ctx, chatID,
			"Бонусы отображаются после подтверждения номера. Нажмите «Поделиться номером».",
			contactKeyboard(),
		)
		return
	}
	b.reply(ctx, chatID,
		fmt.Sprintf("На вашем бонусном счету <b>%d</b> бонусов. Можно оплатить ими до 50%% заказа.", client.BonusBalance),
		mainMenu(false),
	)
}

func (b *Bot) handleSharePrompt(ctx context.Context, chatID int64) {
	b.states.set(chatID, stateAwaitingPhone)
	b.reply(ctx, chatID,
		"Нажмите кнопку ниже, чтобы отправить номер автоматически.\n\n"+
			"Или введите номер вручную в формате: <b>9XXXXXXXXX</b> (10 цифр, начинается с 9)",
		contactKeyboard(),
	)
}

func (b *Bot) handleInquiryPrompt(ctx context.Context, chatID int64, user clients.ChatUser, next conversationState, prompt string) {
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}
	if reconcile.NeedsPhone(client) {
		b.reply(ctx, chatID,
			"⚠️ Сначала нужно указать номер телефона. Поделитесь номером через кнопку или введите его вручную.",
			contactKeyboard(),
		)
		return
	}
	b.states.set(chatID, next)
	b.reply(ctx, chatID, prompt, tgbotapi.NewRemoveKeyboard(false))
}

func (b *Bot) handleInquiry(ctx context.Context, chatID int64, user clients.ChatUser, kind, text, ack string) {
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}
	b.notifier.NotifyAdmins(notify.FormatInquiry(kind, user, client, text))
	b.reply(ctx, chatID, ack, mainMenu(reconcile.NeedsPhone(client)))
	b.states.clear(chatID)
}

func (b *Bot) handlePrice(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "💰 <b>Прайс на услуги</b>\n\nПосмотрите актуальные цены на нашем сайте:")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = priceKeyboard()
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID,
		"🕐 <b>Режим работы:</b>\n"+
			"Ежедневно с 9:00 до 19:00\n\n"+
			"<b>Для связи:</b>\n"+
			"Телефон: +79040437523\n"+
			"Telegram: @raketaclean\n"+
			"Сайт: raketaclean.ru\n"+
			"Эл.почта: raketa@raketaclean.ru\n"+
			"Адрес: Нижний Новгород, ул. Артельная 37 (офис)\n\n"+
			"<b>Услуги:</b> Химчистка мебели и ковролина, клининг, стирка ковров, клининг для бизнеса",
		nil,
	)
}

func (b *Bot) handleFallback(ctx context.Context, chatID int64, user clients.ChatUser, text string) {
	client, err := b.reconciler.Lookup(ctx, user.ID)
	if err != nil {
		b.logger.Error("lookup failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}

	if isMenuButton(text) {
		b.reply(ctx, chatID,
			"Выберите действие через меню: бонусы, заказ или вопрос.",
			mainMenu(reconcile.NeedsPhone(client)),
		)
		return
	}

	if reconcile.NeedsPhone(client) {
		// A bare 10-digit number typed outside the prompt flow is still a
		// phone submission.
		if manualPhonePattern.MatchString(strings.TrimSpace(text)) {
			b.handleManualPhone(ctx, chatID, user, text)
			return
		}
		if _, err := b.leads.Capture(ctx, user); err != nil {
			b.logger.Error("capture lead failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
		b.notifier.NotifyAdmins(notify.FormatInquiry("Вопрос от лида (без телефона)", user, nil, text))
		b.reply(ctx, chatID,
			"Сообщение передано менеджеру. Мы свяжемся с вами в ближайшее время.\n\n"+
				"⚠️ Для полного доступа к функциям бота укажите номер телефона.",
			mainMenu(true),
		)
		return
	}

	b.notifier.NotifyAdmins(notify.FormatInquiry("Вопрос от клиента", user, client, text))
	b.reply(ctx, chatID, "Передал вопрос администратору. Ответим как можно скорее!", mainMenu(false))
}

func (b *Bot) handleChatMember(ctx context.Context, event *tgbotapi.ChatMemberUpdated) {
	if event.Chat.Type != "private" {
		return
	}
	user := event.NewChatMember.User
	if user == nil {
		return
	}
	switch event.NewChatMember.Status {
	case "kicked", "left":
		if err := b.tracker.MarkUnreachable(ctx, user.ID); err != nil {
			b.logger.Error("mark unreachable failed", slog.Int64("chat_id", user.ID), slog.Any("error", err))
		}
	case "member", "administrator":
		if err := b.tracker.MarkReachable(ctx, user.ID); err != nil {
			b.logger.Error("mark reachable failed", slog.Int64("chat_id", user.ID), slog.Any("error", err))
		}
	}
}

func chatUserFrom(u *tgbotapi.User) clients.ChatUser {
	return clients.ChatUser{
		ID:           u.ID,
		Username:     u.UserName,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
	}
}
