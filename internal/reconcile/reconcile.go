// Package reconcile decides which client record an incoming chat identity
// and phone number belong to, merging duplicate records and granting the
// one-time signup bonus in the same transaction.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketaclean/cleanbot/internal/bonus"
	"github.com/raketaclean/cleanbot/internal/clients"
	"github.com/raketaclean/cleanbot/internal/db"
	"github.com/raketaclean/cleanbot/internal/phone"
)

// namePlaceholder is stored when neither the caller nor the chat platform
// reported any usable display name.
const namePlaceholder = "Без имени"

// Reconciler resolves (chat identity, phone) pairs to one authoritative
// client record.
type Reconciler struct {
	pool   *pgxpool.Pool
	dir    *clients.Directory
	ledger *bonus.Ledger
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the directory and ledger.
func NewReconciler(log *slog.Logger, pool *pgxpool.Pool, dir *clients.Directory, ledger *bonus.Ledger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		pool:   pool,
		dir:    dir,
		ledger: ledger,
		logger: log.With(slog.String("service", "reconcile")),
	}
}

// Reconcile resolves the authoritative client for the given sender and raw
// phone input and reports whether two records were merged into one. The
// whole read-decide-write sequence, including the signup bonus grant, runs
// in a single transaction. A unique-constraint or deadlock abort from a
// concurrent reconciliation is retried once against the now-current rows.
func (r *Reconciler) Reconcile(ctx context.Context, user clients.ChatUser, rawPhone, displayName string) (clients.Client, bool, error) {
	canonical := phone.Normalize(rawPhone)
	digits := phone.NormalizeDigits(rawPhone)

	client, merged, err := r.attempt(ctx, user, canonical, digits, displayName)
	if err != nil && db.IsConcurrencyConflict(err) {
		r.logger.Warn("concurrency conflict during reconcile, retrying",
			slog.Int64("chat_id", user.ID),
			slog.Any("error", err),
		)
		client, merged, err = r.attempt(ctx, user, canonical, digits, displayName)
	}
	if err != nil {
		return clients.Client{}, false, err
	}
	return client, merged, nil
}

func (r *Reconciler) attempt(ctx context.Context, user clients.ChatUser, canonical, digits, displayName string) (clients.Client, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return clients.Client{}, false, fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock order is fixed (chat candidate first, phone candidate second).
	// Identical concurrent attempts lock in the same order; attempts whose
	// candidates cross-map to opposite rows can still deadlock, which
	// surfaces as a retryable conflict.
	byChat, err := optional(r.dir.GetByChatID(ctx, tx, user.ID, true))
	if err != nil {
		return clients.Client{}, false, err
	}
	byPhone, err := optional(r.dir.GetByPhone(ctx, tx, canonical, digits, true))
	if err != nil {
		return clients.Client{}, false, err
	}

	var (
		targetID int64
		merged   bool
	)
	switch decide(byChat, byPhone) {
	case decisionRefresh:
		targetID = byPhone.ID
		if _, err := r.ledger.GrantSignup(ctx, tx, targetID); err != nil {
			return clients.Client{}, false, err
		}

	case decisionMerge:
		// The phone-matched record is the known customer; the signup bonus
		// lands there first, then the chat-matched record is absorbed.
		targetID = byPhone.ID
		merged = true
		if _, err := r.ledger.GrantSignup(ctx, tx, targetID); err != nil {
			return clients.Client{}, false, err
		}
		if err := r.ledger.AbsorbClient(ctx, tx, byPhone.ID, byChat.ID); err != nil {
			return clients.Client{}, false, err
		}
		if err := r.dir.ReparentOrders(ctx, tx, byPhone.ID, byChat.ID); err != nil {
			return clients.Client{}, false, err
		}
		if err := r.dir.Delete(ctx, tx, byChat.ID); err != nil {
			return clients.Client{}, false, err
		}
		if err := r.dir.AttachChatID(ctx, tx, targetID, user.ID); err != nil {
			return clients.Client{}, false, err
		}
		r.logger.Info("clients merged",
			slog.Int64("kept", byPhone.ID),
			slog.Int64("absorbed", byChat.ID),
			slog.Int64("chat_id", user.ID),
		)

	case decisionAttachChat:
		targetID = byPhone.ID
		if _, err := r.ledger.GrantSignup(ctx, tx, targetID); err != nil {
			return clients.Client{}, false, err
		}
		if err := r.dir.AttachChatID(ctx, tx, targetID, user.ID); err != nil {
			return clients.Client{}, false, err
		}

	case decisionAttachPhone:
		targetID = byChat.ID
		// An empty canonical phone must never replace one already on the
		// record; phone carries a unique constraint and '' is a real value.
		if canonical != "" {
			if err := r.dir.AttachPhone(ctx, tx, targetID, canonical, digits); err != nil {
				return clients.Client{}, false, err
			}
		}
		if _, err := r.ledger.GrantSignup(ctx, tx, targetID); err != nil {
			return clients.Client{}, false, err
		}

	case decisionCreate:
		created, err := r.dir.Insert(ctx, tx, clients.NewClient{
			Name:        resolveDisplayName(displayName, user),
			Phone:       canonical,
			PhoneDigits: digits,
			ChatID:      user.ID,
		})
		if err != nil {
			return clients.Client{}, false, err
		}
		targetID = created.ID
		if _, err := r.ledger.GrantSignup(ctx, tx, targetID); err != nil {
			return clients.Client{}, false, err
		}
	}

	if err := r.dir.RefreshChatMetadata(ctx, tx, targetID, user); err != nil {
		return clients.Client{}, false, err
	}

	client, err := r.dir.GetByID(ctx, tx, targetID)
	if err != nil {
		return clients.Client{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return clients.Client{}, false, fmt.Errorf("commit reconcile tx: %w", err)
	}
	return client, merged, nil
}

// Lookup returns the client matching the chat identity, or nil when none exists.
func (r *Reconciler) Lookup(ctx context.Context, chatID int64) (*clients.Client, error) {
	client, err := r.dir.GetByChatID(ctx, r.pool, chatID, false)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// NeedsPhone reports whether the client still has to confirm a phone number.
func NeedsPhone(client *clients.Client) bool {
	return client == nil || client.Phone == ""
}

// optional turns the directory's not-found error into a nil candidate.
func optional(client clients.Client, err error) (*clients.Client, error) {
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

type decision int

const (
	decisionRefresh decision = iota
	decisionMerge
	decisionAttachChat
	decisionAttachPhone
	decisionCreate
)

// decide applies the reconciliation priority order to the two candidate
// records: same record, two records to merge, phone-only, chat-only, or
// nothing found.
func decide(byChat, byPhone *clients.Client) decision {
	switch {
	case byChat != nil && byPhone != nil && byChat.ID == byPhone.ID:
		return decisionRefresh
	case byChat != nil && byPhone != nil:
		return decisionMerge
	case byPhone != nil:
		return decisionAttachChat
	case byChat != nil:
		return decisionAttachPhone
	default:
		return decisionCreate
	}
}

// resolveDisplayName falls back from the provided name through the chat
// platform's reported full name and handle to a literal placeholder.
func resolveDisplayName(provided string, user clients.ChatUser) string {
	if provided != "" {
		return provided
	}
	if full := user.FullName(); full != "" {
		return full
	}
	if user.Username != "" {
		return user.Username
	}
	return namePlaceholder
}
