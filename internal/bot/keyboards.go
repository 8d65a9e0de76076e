package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu button labels.
const (
	btnBonus        = "Мои бонусы"
	btnOrder        = "Сделать заказ"
	btnQuestion     = "Задать вопрос"
	btnShareContact = "📱 Поделиться номером"
	btnCancel       = "Отмена"
	btnPrice        = "💰 Прайс"
	btnSchedule     = "🕐 Режим работы"
)

var menuButtons = []string{
	btnBonus,
	btnOrder,
	btnQuestion,
	btnShareContact,
	btnCancel,
	btnPrice,
	btnSchedule,
}

// mainMenu builds the reply keyboard. Until the client confirms a phone
// number only the contact request and static info rows are offered.
func mainMenu(requireContact bool) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	if requireContact {
		rows = [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButtonContact(btnShareContact)},
			{tgbotapi.NewKeyboardButton(btnPrice), tgbotapi.NewKeyboardButton(btnSchedule)},
		}
	} else {
		rows = [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButtonContact(btnShareContact)},
			{tgbotapi.NewKeyboardButton(btnBonus)},
			{tgbotapi.NewKeyboardButton(btnOrder), tgbotapi.NewKeyboardButton(btnQuestion)},
			{tgbotapi.NewKeyboardButton(btnPrice), tgbotapi.NewKeyboardButton(btnSchedule)},
		}
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)})

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	keyboard.InputFieldPlaceholder = "Выберите действие"
	return keyboard
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButtonContact(btnShareContact)},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)},
	)
	keyboard.ResizeKeyboard = true
	keyboard.InputFieldPlaceholder = "Нажмите, чтобы поделиться номером"
	return keyboard
}

func priceKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📄 Открыть прайс", "https://raketaclean.ru/price"),
		),
	)
}

// isMenuButton reports whether text is a command or one of the menu labels,
// with or without the leading emoji.
func isMenuButton(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.HasPrefix(text, "/") {
		return true
	}
	for _, button := range menuButtons {
		stripped := button
		if idx := strings.Index(button, " "); idx >= 0 {
			stripped = button[idx+1:]
		}
		if strings.EqualFold(text, button) || strings.EqualFold(text, stripped) {
			return true
		}
	}
	return false
}
