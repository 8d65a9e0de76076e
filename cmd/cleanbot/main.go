package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	migrations "github.com/raketaclean/cleanbot/db"
	"github.com/raketaclean/cleanbot/internal/bonus"
	"github.com/raketaclean/cleanbot/internal/bot"
	"github.com/raketaclean/cleanbot/internal/clients"
	"github.com/raketaclean/cleanbot/internal/config"
	"github.com/raketaclean/cleanbot/internal/db"
	"github.com/raketaclean/cleanbot/internal/leads"
	"github.com/raketaclean/cleanbot/internal/logger"
	"github.com/raketaclean/cleanbot/internal/notify"
	"github.com/raketaclean/cleanbot/internal/reconcile"
	"github.com/raketaclean/cleanbot/internal/subscription"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.BotToken == "" {
		return config.Config{}, fmt.Errorf("telegram bot token is not set (config telegram.bot_token or BOT_TOKEN)")
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

// provideCapabilities inspects the live clients table once at startup. A
// schema with no usable name column is a hard configuration error.
func provideCapabilities(log *slog.Logger, conn *pgxpool.Pool) (clients.Capabilities, error) {
	caps, err := clients.DetectCapabilities(context.Background(), conn)
	if err != nil {
		return clients.Capabilities{}, fmt.Errorf("inspect clients schema: %w", err)
	}
	log.Info("clients schema detected",
		slog.String("name_column", caps.NameColumn),
		slog.Bool("phone_digits", caps.HasPhoneDigits),
		slog.Bool("alt_chat_id", caps.HasAltChatID),
	)
	return caps, nil
}

func provideDirectory(log *slog.Logger, caps clients.Capabilities) *clients.Directory {
	return clients.NewDirectory(log, caps)
}

func provideLedger(log *slog.Logger, cfg config.Config) *bonus.Ledger {
	return bonus.NewLedger(log, cfg.Bonus.OnboardingAmount, cfg.Bonus.ExpiryDays)
}

func provideBotAPI(log *slog.Logger, cfg config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("telegram authorized", slog.String("bot", api.Self.UserName))
	return api, nil
}

func provideNotifier(log *slog.Logger, cfg config.Config, api *tgbotapi.BotAPI) *notify.Notifier {
	return notify.NewNotifier(log, api, cfg.Telegram.AdminIDs, cfg.Telegram.LogsChatID)
}

func startBot(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *slog.Logger, b *bot.Bot) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := b.Run(ctx); err != nil {
					log.Error("bot stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func runMigrate(command string, args []string) {
	// Migrations only need Postgres settings; a missing bot token must
	// not block them, so the token check in provideConfig is skipped.
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	migrationsFS, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrations fs: %v\n", err)
		os.Exit(1)
	}
	if err := db.RunMigrate(logger.L, cfg.Postgres, migrationsFS, command, args); err != nil {
		logger.L.Error("migrate failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: cleanbot migrate <up|down|version|force N>")
			os.Exit(1)
		}
		runMigrate(os.Args[2], os.Args[3:])
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideCapabilities,
			provideDirectory,
			provideLedger,
			provideBotAPI,
			provideNotifier,
			reconcile.NewReconciler,
			subscription.NewTracker,
			leads.NewService,
			bot.New,
		),
		fx.Invoke(startBot),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
