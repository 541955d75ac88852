// Package voucherbot parses bot command flags and launches the bot runtime.
package voucherbot

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/voucherpool/voucherbot/internal/platform/cmd"
	"github.com/voucherpool/voucherbot/internal/services/voucher/app"
)

// Config holds voucherbot command configuration.
type Config struct {
	HealthPort   int           `env:"VOUCHERBOT_HEALTH_PORT" envDefault:"8091"`
	WebhookPort  int           `env:"VOUCHERBOT_WEBHOOK_PORT" envDefault:"8090"`
	ForumURL     string        `env:"VOUCHERBOT_FORUM_URL"`
	APIKey       string        `env:"VOUCHERBOT_FORUM_API_KEY"`
	APIUsername  string        `env:"VOUCHERBOT_FORUM_API_USERNAME" envDefault:"voucherbot"`
	DBPath       string        `env:"VOUCHERBOT_DB_PATH" envDefault:"data/voucher.db"`
	Category     string        `env:"VOUCHERBOT_CATEGORY" envDefault:"vouchers"`
	MailboxUser  string        `env:"VOUCHERBOT_MAILBOX_USER" envDefault:"voucherbot"`
	MailDomain   string        `env:"VOUCHERBOT_MAIL_DOMAIN"`
	Locale       string        `env:"VOUCHERBOT_LOCALE" envDefault:"en"`
	PollInterval time.Duration `env:"VOUCHERBOT_POLL_INTERVAL" envDefault:"1m"`
	ForceSeason  bool          `env:"VOUCHERBOT_FORCE_SEASON" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The health gRPC server port")
	fs.IntVar(&cfg.WebhookPort, "webhook-port", cfg.WebhookPort, "The webhook HTTP server port")
	fs.StringVar(&cfg.ForumURL, "forum-url", cfg.ForumURL, "The forum base URL")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "The forum API key")
	fs.StringVar(&cfg.APIUsername, "api-username", cfg.APIUsername, "The forum API username the bot acts as")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The voucher database path")
	fs.StringVar(&cfg.Category, "category", cfg.Category, "The forum category hosting the distribution topic")
	fs.StringVar(&cfg.MailboxUser, "mailbox-user", cfg.MailboxUser, "The local part of the voucher return address")
	fs.StringVar(&cfg.MailDomain, "mail-domain", cfg.MailDomain, "The domain of the voucher return address")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "The member-facing message locale")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Distribution poll cycle interval")
	fs.BoolVar(&cfg.ForceSeason, "force-season", cfg.ForceSeason, "Distribute vouchers outside the usual season")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the voucherbot runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceVoucherbot, func(context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			HealthPort:   cfg.HealthPort,
			WebhookPort:  cfg.WebhookPort,
			ForumURL:     cfg.ForumURL,
			APIKey:       cfg.APIKey,
			APIUsername:  cfg.APIUsername,
			DBPath:       cfg.DBPath,
			Category:     cfg.Category,
			MailboxUser:  cfg.MailboxUser,
			MailDomain:   cfg.MailDomain,
			Locale:       cfg.Locale,
			PollInterval: cfg.PollInterval,
			ForceSeason:  cfg.ForceSeason,
		})
	})
}
