package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Directory resolves client rows by chat identity or phone and performs all
// writes to the clients table. Every statement it issues is shaped by the
// capability descriptor, so a missing optional column is a skip decision
// made up front, never an error caught at runtime.
type Directory struct {
	caps   Capabilities
	logger *slog.Logger
}

// NewDirectory creates a directory over the given capability descriptor.
func NewDirectory(log *slog.Logger, caps Capabilities) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		caps:   caps,
		logger: log.With(slog.String("service", "clients")),
	}
}

// Capabilities returns the descriptor the directory was built with.
func (d *Directory) Capabilities() Capabilities {
	return d.caps
}

// GetByID loads one client row by primary key.
func (d *Directory) GetByID(ctx context.Context, q Querier, id int64) (Client, error) {
	return d.getOne(ctx, q, "WHERE id = $1", false, id)
}

// GetByChatID returns the client matching the chat identity. The bot's own
// identity column wins; the CRM's tg_user_id column is a fallback when the
// schema carries it. forUpdate locks the row for the caller's transaction.
func (d *Directory) GetByChatID(ctx context.Context, q Querier, chatID int64, forUpdate bool) (Client, error) {
	if d.caps.HasAltChatID {
		clause := `WHERE bot_tg_user_id = $1 OR tg_user_id = $1
			ORDER BY CASE WHEN bot_tg_user_id = $1 THEN 0 ELSE 1 END, id`
		return d.getOne(ctx, q, clause, forUpdate, chatID)
	}
	return d.getOne(ctx, q, "WHERE bot_tg_user_id = $1 ORDER BY id", forUpdate, chatID)
}

// GetByPhone returns the client matching the normalized phone. Deployments
// with a digits-only column match on it; others match the canonical form.
func (d *Directory) GetByPhone(ctx context.Context, q Querier, canonical, digits string, forUpdate bool) (Client, error) {
	if d.caps.HasPhoneDigits && digits != "" {
		return d.getOne(ctx, q, "WHERE phone_digits = $1 ORDER BY id", forUpdate, digits)
	}
	return d.getOne(ctx, q, "WHERE phone = $1 ORDER BY id", forUpdate, canonical)
}

// Insert creates a new client row marked as bot-started now.
func (d *Directory) Insert(ctx context.Context, q Querier, nc NewClient) (Client, error) {
	cols := []string{d.caps.NameColumn, "phone", "bot_tg_user_id", "bot_started"}
	args := []any{nc.Name, textOrNull(nc.Phone), int8OrNull(nc.ChatID), true}
	values := []string{"$1", "$2", "$3", "$4"}

	add := func(col string, arg any) {
		args = append(args, arg)
		cols = append(cols, col)
		values = append(values, fmt.Sprintf("$%d", len(args)))
	}
	if d.caps.HasPhoneDigits {
		add("phone_digits", textOrNull(nc.PhoneDigits))
	}
	if d.caps.HasAltChatID {
		add("tg_user_id", int8OrNull(nc.ChatID))
	}
	if d.caps.HasStatus {
		add("status", "client")
	}
	if d.caps.HasBotStartedAt {
		cols = append(cols, "bot_started_at")
		values = append(values, "NOW()")
	}

	sql := fmt.Sprintf(
		"INSERT INTO clients (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		strings.Join(values, ", "),
	)
	var id int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return Client{}, fmt.Errorf("insert client: %w", err)
	}
	return d.GetByID(ctx, q, id)
}

// AttachChatID binds the chat identity to an existing row without ever
// overwriting an identity already present, and flips the started flag.
func (d *Directory) AttachChatID(ctx context.Context, q Querier, id, chatID int64) error {
	b := newUpdateBuilder(id)
	b.set("bot_tg_user_id = COALESCE(bot_tg_user_id, $2)", chatID)
	if d.caps.HasAltChatID {
		b.raw("tg_user_id = COALESCE(tg_user_id, $2)")
	}
	d.markStarted(b)
	return b.exec(ctx, q, "attach chat id")
}

// AttachPhone writes the phone onto an existing row and flips the started flag.
func (d *Directory) AttachPhone(ctx context.Context, q Querier, id int64, canonical, digits string) error {
	b := newUpdateBuilder(id)
	b.set("phone = $2", canonical)
	if d.caps.HasPhoneDigits {
		b.set(fmt.Sprintf("phone_digits = $%d", b.next()), textOrNull(digits))
	}
	d.markStarted(b)
	return b.exec(ctx, q, "attach phone")
}

// RefreshChatMetadata overwrites the chat-platform profile fields that the
// schema carries. Identity, start timestamps, and preferred contact channel
// are deliberately untouched here.
func (d *Directory) RefreshChatMetadata(ctx context.Context, q Querier, id int64, user ChatUser) error {
	b := newUpdateBuilder(id)
	if d.caps.HasTGUsername {
		b.set(fmt.Sprintf("tg_username = $%d", b.next()), textOrNull(user.Username))
	}
	if d.caps.HasTGFirstName {
		b.set(fmt.Sprintf("tg_first_name = $%d", b.next()), textOrNull(user.FirstName))
	}
	if d.caps.HasTGLastName {
		b.set(fmt.Sprintf("tg_last_name = $%d", b.next()), textOrNull(user.LastName))
	}
	if d.caps.HasTGLanguageCode {
		b.set(fmt.Sprintf("tg_language_code = $%d", b.next()), textOrNull(user.LanguageCode))
	}
	if d.caps.HasTGPremium {
		b.set(fmt.Sprintf("tg_is_premium = $%d", b.next()), user.IsPremium)
	}
	if d.caps.HasStatus {
		b.raw("status = 'client'")
	}
	if b.empty() {
		return nil
	}
	if d.caps.HasLastUpdated {
		b.raw("last_updated = NOW()")
	}
	return b.exec(ctx, q, "refresh chat metadata")
}

// SetReachability flips the bot_started flag. preferred is written only when
// the schema has the column; stampStartedAt stamps the first-start timestamp
// without ever rewinding an earlier one.
func (d *Directory) SetReachability(ctx context.Context, q Querier, id int64, started bool, preferred string, stampStartedAt bool) error {
	b := newUpdateBuilder(id)
	b.set("bot_started = $2", started)
	if d.caps.HasPreferredContact && preferred != "" {
		b.set(fmt.Sprintf("preferred_contact = $%d", b.next()), preferred)
	}
	if stampStartedAt && d.caps.HasBotStartedAt {
		b.raw("bot_started_at = COALESCE(bot_started_at, NOW())")
	}
	if d.caps.HasLastUpdated {
		b.raw("last_updated = NOW()")
	}
	return b.exec(ctx, q, "set reachability")
}

// ReparentOrders moves order history from one client row to another.
func (d *Directory) ReparentOrders(ctx context.Context, q Querier, keepID, dropID int64) error {
	if _, err := q.Exec(ctx, "UPDATE orders SET client_id = $1 WHERE client_id = $2", keepID, dropID); err != nil {
		return fmt.Errorf("reparent orders: %w", err)
	}
	return nil
}

// Delete removes an absorbed client row after a merge.
func (d *Directory) Delete(ctx context.Context, q Querier, id int64) error {
	if _, err := q.Exec(ctx, "DELETE FROM clients WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

func (d *Directory) markStarted(b *updateBuilder) {
	b.raw("bot_started = TRUE")
	if d.caps.HasBotStartedAt {
		b.raw("bot_started_at = COALESCE(bot_started_at, NOW())")
	}
	if d.caps.HasStatus {
		b.raw("status = 'client'")
	}
	if d.caps.HasLastUpdated {
		b.raw("last_updated = NOW()")
	}
}

func (d *Directory) getOne(ctx context.Context, q Querier, clause string, forUpdate bool, args ...any) (Client, error) {
	sql := fmt.Sprintf("SELECT %s FROM clients %s LIMIT 1", strings.Join(d.selectColumns(), ", "), clause)
	if forUpdate {
		sql += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return Client{}, fmt.Errorf("query client: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Client{}, fmt.Errorf("query client: %w", err)
		}
		return Client{}, ErrNotFound
	}
	client, err := d.scanClient(rows)
	if err != nil {
		return Client{}, err
	}
	return client, nil
}

// selectColumns returns the column list in the fixed order scanClient expects.
func (d *Directory) selectColumns() []string {
	cols := []string{
		"id",
		d.caps.NameColumn,
		"phone",
		"bot_tg_user_id",
		"bonus_balance",
		"total_spent",
		"total_bonuses_earned",
		"total_bonuses_spent",
		"bot_bonus_granted",
		"bot_started",
	}
	if d.caps.HasPhoneDigits {
		cols = append(cols, "phone_digits")
	}
	if d.caps.HasAltChatID {
		cols = append(cols, "tg_user_id")
	}
	if d.caps.HasStatus {
		cols = append(cols, "status")
	}
	if d.caps.HasPreferredContact {
		cols = append(cols, "preferred_contact")
	}
	if d.caps.HasBotStartedAt {
		cols = append(cols, "bot_started_at")
	}
	if d.caps.HasTGUsername {
		cols = append(cols, "tg_username")
	}
	if d.caps.HasTGFirstName {
		cols = append(cols, "tg_first_name")
	}
	if d.caps.HasTGLastName {
		cols = append(cols, "tg_last_name")
	}
	if d.caps.HasTGLanguageCode {
		cols = append(cols, "tg_language_code")
	}
	if d.caps.HasTGPremium {
		cols = append(cols, "tg_is_premium")
	}
	if d.caps.HasLastUpdated {
		cols = append(cols, "last_updated")
	}
	return cols
}

func (d *Directory) scanClient(row pgx.Row) (Client, error) {
	var (
		c            Client
		name         pgtype.Text
		phone        pgtype.Text
		chatID       pgtype.Int8
		phoneDigits  pgtype.Text
		altChatID    pgtype.Int8
		status       pgtype.Text
		preferred    pgtype.Text
		botStartedAt pgtype.Timestamptz
		tgUsername   pgtype.Text
		tgFirstName  pgtype.Text
		tgLastName   pgtype.Text
		tgLangCode   pgtype.Text
		lastUpdated  pgtype.Timestamptz
	)
	dest := []any{
		&c.ID,
		&name,
		&phone,
		&chatID,
		&c.BonusBalance,
		&c.TotalSpent,
		&c.TotalBonusesEarned,
		&c.TotalBonusesSpent,
		&c.BonusGranted,
		&c.BotStarted,
	}
	if d.caps.HasPhoneDigits {
		dest = append(dest, &phoneDigits)
	}
	if d.caps.HasAltChatID {
		dest = append(dest, &altChatID)
	}
	if d.caps.HasStatus {
		dest = append(dest, &status)
	}
	if d.caps.HasPreferredContact {
		dest = append(dest, &preferred)
	}
	if d.caps.HasBotStartedAt {
		dest = append(dest, &botStartedAt)
	}
	if d.caps.HasTGUsername {
		dest = append(dest, &tgUsername)
	}
	if d.caps.HasTGFirstName {
		dest = append(dest, &tgFirstName)
	}
	if d.caps.HasTGLastName {
		dest = append(dest, &tgLastName)
	}
	if d.caps.HasTGLanguageCode {
		dest = append(dest, &tgLangCode)
	}
	if d.caps.HasTGPremium {
		dest = append(dest, &c.TGPremium)
	}
	if d.caps.HasLastUpdated {
		dest = append(dest, &lastUpdated)
	}
	if err := row.Scan(dest...); err != nil {
		return Client{}, fmt.Errorf("scan client: %w", err)
	}

	c.Name = name.String
	c.Phone = phone.String
	if chatID.Valid {
		c.ChatID = chatID.Int64
	}
	c.PhoneDigits = phoneDigits.String
	if altChatID.Valid {
		c.AltChatID = altChatID.Int64
	}
	c.Status = status.String
	c.PreferredContact = preferred.String
	if botStartedAt.Valid {
		c.BotStartedAt = botStartedAt.Time
	}
	c.TGUsername = tgUsername.String
	c.TGFirstName = tgFirstName.String
	c.TGLastName = tgLastName.String
	c.TGLanguageCode = tgLangCode.String
	if lastUpdated.Valid {
		c.LastUpdated = lastUpdated.Time
	}
	return c, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func int8OrNull(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}

// updateBuilder assembles an UPDATE statement against one client row ($1 is
// always the id). Which assignments are added is decided statically from the
// capability descriptor by the caller.
type updateBuilder struct {
	assignments []string
	args        []any
}

func newUpdateBuilder(id int64) *updateBuilder {
	return &updateBuilder{args: []any{id}}
}

// next returns the placeholder index for the argument about to be added.
func (b *updateBuilder) next() int {
	return len(b.args) + 1
}

func (b *updateBuilder) set(assignment string, arg any) {
	b.assignments = append(b.assignments, assignment)
	b.args = append(b.args, arg)
}

func (b *updateBuilder) raw(assignment string) {
	b.assignments = append(b.assignments, assignment)
}

func (b *updateBuilder) empty() bool {
	return len(b.assignments) == 0
}

func (b *updateBuilder) exec(ctx context.Context, q Querier, op string) error {
	if b.empty() {
		return nil
	}
	sql := "UPDATE clients SET " + strings.Join(b.assignments, ", ") + " WHERE id = $1"
	if _, err := q.Exec(ctx, sql, b.args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
