package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raketaclean/cleanbot/internal/clients"
)

type sendRecorder struct {
	sent []tgbotapi.MessageConfig
}

func (r *sendRecorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

type stubResolver struct {
	client clients.Client
	err    error
}

func (s *stubResolver) Reconcile(ctx context.Context, user clients.ChatUser, rawPhone, displayName string) (clients.Client, bool, error) {
	return s.client, false, s.err
}

func (s *stubResolver) Lookup(ctx context.Context, chatID int64) (*clients.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s.client, nil
}

func TestManualPhoneFailureKeepsAwaitingState(t *testing.T) {
	rec := &sendRecorder{}
	b := &Bot{
		sender:     rec,
		reconciler: &stubResolver{err: errors.New("connection refused")},
		states:     newStateStore(),
		logger:     slog.Default(),
	}
	chatID := int64(100)
	b.states.set(chatID, stateAwaitingPhone)

	b.handleManualPhone(context.Background(), chatID, clients.ChatUser{ID: chatID}, "9001234567")

	if got := b.states.get(chatID); got != stateAwaitingPhone {
		t.Fatalf("state = %v, want stateAwaitingPhone kept after a failed confirmation", got)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.sent))
	}
	if !strings.Contains(rec.sent[0].Text, "ещё раз") {
		t.Errorf("user was not told to retry:\n%s", rec.sent[0].Text)
	}
}

func TestContactFailureKeepsState(t *testing.T) {
	rec := &sendRecorder{}
	b := &Bot{
		sender:     rec,
		reconciler: &stubResolver{err: errors.New("deadlock detected")},
		states:     newStateStore(),
		logger:     slog.Default(),
	}
	chatID := int64(200)
	b.states.set(chatID, stateAwaitingPhone)

	contact := &tgbotapi.Contact{PhoneNumber: "+79001234567", UserID: chatID, FirstName: "Анна"}
	b.handleContact(context.Background(), chatID, clients.ChatUser{ID: chatID}, contact)

	if got := b.states.get(chatID); got != stateAwaitingPhone {
		t.Fatalf("state = %v, want stateAwaitingPhone kept after a failed confirmation", got)
	}
}

func TestContactRejectsForeignOwner(t *testing.T) {
	rec := &sendRecorder{}
	resolver := &stubResolver{err: errors.New("must not be called")}
	b := &Bot{
		sender:     rec,
		reconciler: resolver,
		states:     newStateStore(),
		logger:     slog.Default(),
	}

	contact := &tgbotapi.Contact{PhoneNumber: "+79001234567", UserID: 999}
	b.handleContact(context.Background(), 100, clients.ChatUser{ID: 100}, contact)

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 rejection", len(rec.sent))
	}
	if !strings.Contains(rec.sent[0].Text, "собственным номером") {
		t.Errorf("expected the own-number rejection, got:\n%s", rec.sent[0].Text)
	}
}
