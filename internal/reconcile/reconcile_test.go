package reconcile

import (
	"errors"
	"testing"

	"github.com/raketaclean/cleanbot/internal/clients"
)

func TestDecide(t *testing.T) {
	same := &clients.Client{ID: 1}
	other := &clients.Client{ID: 2}

	tests := []struct {
		name    string
		byChat  *clients.Client
		byPhone *clients.Client
		want    decision
	}{
		{"same record via both keys", same, same, decisionRefresh},
		{"two distinct records", other, same, decisionMerge},
		{"phone match only", nil, same, decisionAttachChat},
		{"chat match only", same, nil, decisionAttachPhone},
		{"nothing found", nil, nil, decisionCreate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(tt.byChat, tt.byPhone); got != tt.want {
				t.Errorf("decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideSameIDIsRefreshNotMerge(t *testing.T) {
	a := &clients.Client{ID: 5}
	b := &clients.Client{ID: 5}
	if got := decide(a, b); got != decisionRefresh {
		t.Errorf("decide() = %v, want decisionRefresh for equal ids", got)
	}
}

func TestResolveDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		user     clients.ChatUser
		want     string
	}{
		{"provided wins", "Иван Петров", clients.ChatUser{FirstName: "Ivan", Username: "ivan"}, "Иван Петров"},
		{"falls back to full name", "", clients.ChatUser{FirstName: "Ivan", LastName: "Petrov"}, "Ivan Petrov"},
		{"falls back to username", "", clients.ChatUser{Username: "ivan99"}, "ivan99"},
		{"placeholder when nothing", "", clients.ChatUser{}, namePlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDisplayName(tt.provided, tt.user); got != tt.want {
				t.Errorf("resolveDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedsPhone(t *testing.T) {
	if !NeedsPhone(nil) {
		t.Error("nil client should need a phone")
	}
	if !NeedsPhone(&clients.Client{}) {
		t.Error("client without phone should need a phone")
	}
	if NeedsPhone(&clients.Client{Phone: "+79001234567"}) {
		t.Error("client with phone should not need a phone")
	}
}

func TestOptional(t *testing.T) {
	c, err := optional(clients.Client{ID: 3}, nil)
	if err != nil || c == nil || c.ID != 3 {
		t.Errorf("optional(found) = %v, %v", c, err)
	}

	c, err = optional(clients.Client{}, clients.ErrNotFound)
	if err != nil || c != nil {
		t.Errorf("optional(not found) = %v, %v, want nil candidate", c, err)
	}

	_, err = optional(clients.Client{}, errors.New("connection reset"))
	if err == nil {
		t.Error("optional should propagate real errors")
	}
}
