package notify

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raketaclean/cleanbot/internal/clients"
)

// recorder captures outbound messages instead of hitting Telegram.
type recorder struct {
	sent []tgbotapi.MessageConfig
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestNotifyAdminsFansOut(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(nil, rec, []int64{10, 20, 30}, 0)

	n.NotifyAdmins("привет")

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(rec.sent))
	}
	for i, want := range []int64{10, 20, 30} {
		if rec.sent[i].ChatID != want {
			t.Errorf("message %d chat id = %d, want %d", i, rec.sent[i].ChatID, want)
		}
		if rec.sent[i].Text != "привет" {
			t.Errorf("message %d text = %q", i, rec.sent[i].Text)
		}
	}
}

func TestNotifyAdminsNoAdmins(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(nil, rec, nil, 0)

	n.NotifyAdmins("lost")

	if len(rec.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(rec.sent))
	}
}

func TestLogSignup(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(nil, rec, nil, -100)

	client := clients.Client{ID: 42, Name: "Анна", Phone: "+79001234567"}
	user := clients.ChatUser{ID: 777, Username: "anna"}
	n.LogSignup(client, user, 300, true)

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.sent))
	}
	text := rec.sent[0].Text
	for _, fragment := range []string{"42", "Анна", "+79001234567", "@anna", "777", "300", "объединен"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("signup log missing %q:\n%s", fragment, text)
		}
	}
}

func TestLogSignupDisabled(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(nil, rec, nil, 0)

	n.LogSignup(clients.Client{ID: 1}, clients.ChatUser{ID: 1}, 300, false)

	if len(rec.sent) != 0 {
		t.Errorf("sent %d messages, want 0 when logs chat is disabled", len(rec.sent))
	}
}

func TestFormatInquiry(t *testing.T) {
	user := clients.ChatUser{ID: 55, Username: "vova", FirstName: "Владимир"}
	client := &clients.Client{Phone: "+79005556677"}

	text := FormatInquiry("Вопрос от клиента", user, client, "Сколько стоит химчистка дивана?")

	for _, fragment := range []string{"Вопрос от клиента", "Владимир", "@vova", "55", "+79005556677", "Сколько стоит"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("inquiry missing %q:\n%s", fragment, text)
		}
	}
}

func TestFormatInquiryNoClient(t *testing.T) {
	text := FormatInquiry("Вопрос от лида", clients.ChatUser{ID: 9}, nil, "")

	if !strings.Contains(text, "не указан") {
		t.Errorf("expected phone placeholder for nil client:\n%s", text)
	}
	if !strings.Contains(text, "—") {
		t.Errorf("expected em dash placeholders for missing fields:\n%s", text)
	}
}
