// Package leads records inquiries from users who have not yet confirmed a
// phone number, so staff can follow up manually.
package leads

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketaclean/cleanbot/internal/clients"
)

// Service creates lead rows for phone-less inquiries.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a leads service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "leads")),
	}
}

// Capture records a lead for the chat user unless one already exists for
// the same identity. Returns whether a new lead was created.
func (s *Service) Capture(ctx context.Context, user clients.ChatUser) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM leads WHERE tg_user_id = $1)",
		user.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing lead: %w", err)
	}
	if exists {
		return false, nil
	}

	name := user.FullName()
	if name == "" {
		name = user.Username
	}
	if name == "" {
		name = "Без имени"
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO leads (name, phone, source, status, tg_user_id)
		VALUES ($1, NULL, 'telegram_bot', 'new', $2)
	`, name, user.ID)
	if err != nil {
		return false, fmt.Errorf("insert lead: %w", err)
	}
	s.logger.Info("lead captured", slog.Int64("chat_id", user.ID), slog.String("name", name))
	return true, nil
}
