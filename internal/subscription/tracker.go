// Package subscription tracks whether a client is currently reachable
// through the bot, reacting to delivery failures and membership events.
package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketaclean/cleanbot/internal/clients"
)

// Preferred-contact channel values written when flipping reachability.
const (
	channelBot    = "bot"
	channelWahelp = "wahelp"
)

// Tracker flips a client's reachability flag.
type Tracker struct {
	pool   *pgxpool.Pool
	dir    *clients.Directory
	logger *slog.Logger
}

// NewTracker creates a reachability tracker over the directory.
func NewTracker(log *slog.Logger, pool *pgxpool.Pool, dir *clients.Directory) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		pool:   pool,
		dir:    dir,
		logger: log.With(slog.String("service", "subscription")),
	}
}

// MarkUnreachable records that outbound delivery to this chat identity is
// failing permanently (bot blocked, account deleted). Unknown identities
// are a no-op.
func (t *Tracker) MarkUnreachable(ctx context.Context, chatID int64) error {
	client, err := t.dir.GetByChatID(ctx, t.pool, chatID, false)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := t.dir.SetReachability(ctx, t.pool, client.ID, false, channelWahelp, false); err != nil {
		return err
	}
	t.logger.Info("client marked unreachable",
		slog.Int64("client_id", client.ID),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// MarkReachable records that the client re-joined or unblocked the bot.
// Unknown identities are a no-op.
func (t *Tracker) MarkReachable(ctx context.Context, chatID int64) error {
	client, err := t.dir.GetByChatID(ctx, t.pool, chatID, false)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := t.dir.SetReachability(ctx, t.pool, client.ID, true, channelBot, true); err != nil {
		return err
	}
	t.logger.Info("client marked reachable",
		slog.Int64("client_id", client.ID),
		slog.Int64("chat_id", chatID),
	)
	return nil
}
