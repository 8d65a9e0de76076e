// Package clients owns the client table: row lookup, capability-aware
// reads and writes, and client row lifecycle.
package clients

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no client row matches a lookup.
var ErrNotFound = errors.New("client not found")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so directory
// operations can run either standalone or inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client is the canonical record for one customer.
type Client struct {
	ID          int64
	Name        string
	Phone       string
	PhoneDigits string

	// ChatID is the bot's own chat identity column (bot_tg_user_id).
	// AltChatID mirrors the CRM's tg_user_id column when the schema has it.
	ChatID    int64
	AltChatID int64

	Status             string
	BonusBalance       int
	TotalSpent         int
	TotalBonusesEarned int
	TotalBonusesSpent  int
	BonusGranted       bool

	BotStarted       bool
	BotStartedAt     time.Time
	PreferredContact string

	TGUsername     string
	TGFirstName    string
	TGLastName     string
	TGLanguageCode string
	TGPremium      bool

	LastUpdated time.Time
}

// ChatUser carries the sender identity reported by the messaging platform.
type ChatUser struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
}

// FullName joins first and last name, either of which may be empty.
func (u ChatUser) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// NewClient holds the fields for a freshly created client row.
type NewClient struct {
	Name        string
	Phone       string
	PhoneDigits string
	ChatID      int64
}
