// Package bonus owns the bonus_transactions ledger and the bonus fields on
// the client row. Ledger rows are insert-only; the signup grant is
// at-most-once per client, backed by a partial unique index.
package bonus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/raketaclean/cleanbot/internal/clients"
)

// ReasonSignup tags the one-time onboarding grant.
const ReasonSignup = "signup"

// reasonSignupMerged re-tags a signup row absorbed from a merged client when
// the surviving client already holds one, so the signup uniqueness invariant
// keeps holding after re-parenting.
const reasonSignupMerged = "signup_merged"

// Ledger grants and reads bonus transactions.
type Ledger struct {
	amount     int
	expiryDays int
	logger     *slog.Logger
}

// NewLedger creates a ledger with the configured onboarding amount and
// validity window in days.
func NewLedger(log *slog.Logger, amount, expiryDays int) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	if amount <= 0 {
		amount = 300
	}
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &Ledger{
		amount:     amount,
		expiryDays: expiryDays,
		logger:     log.With(slog.String("service", "bonus")),
	}
}

// Amount returns the configured onboarding grant size.
func (l *Ledger) Amount() int {
	return l.amount
}

// GrantSignup credits the one-time signup bonus to the client if it was
// never granted before. It must run inside the caller's transaction so a
// crash between reconciliation and grant rolls both back together. Returns
// false when the client already holds a signup transaction. A concurrent
// grant surfaces as a unique-violation error; the caller retries the whole
// transaction.
func (l *Ledger) GrantSignup(ctx context.Context, q clients.Querier, clientID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bonus_transactions
			WHERE client_id = $1 AND reason = $2
		)
	`, clientID, ReasonSignup).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check signup grant: %w", err)
	}
	if exists {
		return false, nil
	}

	expiresAt := time.Now().UTC().Add(time.Duration(l.expiryDays) * 24 * time.Hour)
	_, err = q.Exec(ctx, `
		INSERT INTO bonus_transactions (client_id, order_id, delta, reason, expires_at)
		VALUES ($1, NULL, $2, $3, $4)
	`, clientID, l.amount, ReasonSignup, expiresAt)
	if err != nil {
		// Includes the partial-unique-index conflict when a concurrent grant
		// won the race. The transaction is aborted either way, so the error
		// must reach the caller, whose retry re-runs the existence check.
		return false, fmt.Errorf("insert signup transaction: %w", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE clients
		SET bonus_balance = bonus_balance + $1,
		    bot_bonus_granted = TRUE
		WHERE id = $2
	`, l.amount, clientID)
	if err != nil {
		return false, fmt.Errorf("credit signup bonus: %w", err)
	}

	l.logger.Info("signup bonus granted",
		slog.Int64("client_id", clientID),
		slog.Int("amount", l.amount),
		slog.Time("expires_at", expiresAt),
	)
	return true, nil
}

// Balance returns the client's bonus balance and, when present, the expiry
// of the most recent signup grant.
func (l *Ledger) Balance(ctx context.Context, q clients.Querier, clientID int64) (int, *time.Time, error) {
	var balance int
	if err := q.QueryRow(ctx, "SELECT bonus_balance FROM clients WHERE id = $1", clientID).Scan(&balance); err != nil {
		return 0, nil, fmt.Errorf("read bonus balance: %w", err)
	}

	var expiresAt pgtype.Timestamptz
	err := q.QueryRow(ctx, `
		SELECT expires_at
		FROM bonus_transactions
		WHERE client_id = $1
		  AND reason = $2
		  AND expires_at IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, clientID, ReasonSignup).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return balance, nil, nil
		}
		return 0, nil, fmt.Errorf("read signup expiry: %w", err)
	}
	if !expiresAt.Valid {
		return balance, nil, nil
	}
	expiry := expiresAt.Time
	return balance, &expiry, nil
}

// AbsorbClient moves the dropped client's ledger history onto the surviving
// client and folds the cached balance and lifetime totals into it. A signup
// row coming from the dropped client is re-tagged when the survivor already
// holds one, so the partial unique index stays satisfied. Runs inside the
// caller's merge transaction.
func (l *Ledger) AbsorbClient(ctx context.Context, q clients.Querier, keepID, dropID int64) error {
	_, err := q.Exec(ctx, `
		UPDATE bonus_transactions
		SET reason = $1
		WHERE client_id = $2
		  AND reason = $3
		  AND EXISTS (
			SELECT 1 FROM bonus_transactions
			WHERE client_id = $4 AND reason = $3
		  )
	`, reasonSignupMerged, dropID, ReasonSignup, keepID)
	if err != nil {
		return fmt.Errorf("retag merged signup: %w", err)
	}

	_, err = q.Exec(ctx, "UPDATE bonus_transactions SET client_id = $1 WHERE client_id = $2", keepID, dropID)
	if err != nil {
		return fmt.Errorf("reparent bonus transactions: %w", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE clients target
		SET bonus_balance = target.bonus_balance + source.bonus_balance,
		    total_spent = target.total_spent + source.total_spent,
		    total_bonuses_earned = target.total_bonuses_earned + source.total_bonuses_earned,
		    total_bonuses_spent = target.total_bonuses_spent + source.total_bonuses_spent
		FROM clients source
		WHERE target.id = $1 AND source.id = $2
	`, keepID, dropID)
	if err != nil {
		return fmt.Errorf("fold bonus totals: %w", err)
	}
	return nil
}
