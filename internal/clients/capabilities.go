package clients

import (
	"context"
	"errors"
	"fmt"
)

// Capabilities describes which optional columns the clients table carries.
// Schemas diverge across deployments (older migrations vs. the CRM-managed
// production table), so every read and write path is shaped by this
// descriptor instead of probing at query time. Detect it once at startup
// and treat it as immutable for the process lifetime.
type Capabilities struct {
	// NameColumn is "full_name" or "name" depending on schema generation.
	NameColumn string

	HasAltChatID        bool // tg_user_id
	HasPhoneDigits      bool // phone_digits
	HasStatus           bool // status
	HasPreferredContact bool // preferred_contact
	HasBotStartedAt     bool // bot_started_at
	HasLastUpdated      bool // last_updated

	HasTGUsername     bool
	HasTGFirstName    bool
	HasTGLastName     bool
	HasTGLanguageCode bool
	HasTGPremium      bool
}

// ErrNoNameColumn means the clients table has neither of the two supported
// display-name columns; reconciliation cannot proceed against such a schema.
var ErrNoNameColumn = errors.New("clients table has neither 'full_name' nor 'name' column")

// DetectCapabilities introspects the clients table once and builds the
// capability descriptor. Tests inject a Capabilities value directly instead
// of calling this.
func DetectCapabilities(ctx context.Context, q Querier) (Capabilities, error) {
	rows, err := q.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = 'clients'
	`)
	if err != nil {
		return Capabilities{}, fmt.Errorf("introspect clients columns: %w", err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Capabilities{}, fmt.Errorf("scan column name: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return Capabilities{}, fmt.Errorf("introspect clients columns: %w", err)
	}
	return CapabilitiesFromColumns(columns)
}

// CapabilitiesFromColumns builds the descriptor from a column-name set.
func CapabilitiesFromColumns(columns map[string]bool) (Capabilities, error) {
	caps := Capabilities{
		HasAltChatID:        columns["tg_user_id"],
		HasPhoneDigits:      columns["phone_digits"],
		HasStatus:           columns["status"],
		HasPreferredContact: columns["preferred_contact"],
		HasBotStartedAt:     columns["bot_started_at"],
		HasLastUpdated:      columns["last_updated"],
		HasTGUsername:       columns["tg_username"],
		HasTGFirstName:      columns["tg_first_name"],
		HasTGLastName:       columns["tg_last_name"],
		HasTGLanguageCode:   columns["tg_language_code"],
		HasTGPremium:        columns["tg_is_premium"],
	}
	switch {
	case columns["full_name"]:
		caps.NameColumn = "full_name"
	case columns["name"]:
		caps.NameColumn = "name"
	default:
		return Capabilities{}, ErrNoNameColumn
	}
	return caps, nil
}
