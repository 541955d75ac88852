package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/voucherpool/voucherbot/internal/services/voucher/storage/bbolt"
	"github.com/voucherpool/voucherbot/internal/transport/forum"
)

// RuntimeConfig controls bot startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	HealthPort   int
	WebhookPort  int
	ForumURL     string
	APIKey       string
	APIUsername  string
	DBPath       string
	Category     string
	MailboxUser  string
	MailDomain   string
	Locale       string
	PollInterval time.Duration
	ForceSeason  bool
}

const (
	defaultHealthPort   = 8091
	defaultWebhookPort  = 8090
	defaultDBPath       = "data/voucher.db"
	defaultPollInterval = time.Minute
)

// Run starts runtime dependencies, the webhook server, and the poll loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.ForumURL) == "" {
		return fmt.Errorf("forum url is required")
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if cfg.WebhookPort <= 0 {
		cfg.WebhookPort = defaultWebhookPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := bbolt.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open voucher store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close voucher store: %v", closeErr)
		}
	}()

	client, err := forum.New(cfg.ForumURL, cfg.APIKey, cfg.APIUsername, nil)
	if err != nil {
		return fmt.Errorf("build forum client: %w", err)
	}

	driver, err := NewDriver(store, client, DriverConfig{
		Category:    cfg.Category,
		MailboxUser: cfg.MailboxUser,
		MailDomain:  cfg.MailDomain,
		Locale:      cfg.Locale,
		ForceSeason: cfg.ForceSeason,
	}, nil, nil)
	if err != nil {
		return err
	}

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	defer healthListener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("voucherbot.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcErr
	}()

	webhookServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebhookPort),
		Handler:           NewWebhookMux(driver),
		ReadHeaderTimeout: 10 * time.Second,
	}
	webhookErr := make(chan error, 1)
	go func() {
		webhookErr <- webhookServer.ListenAndServe()
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webhookServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown webhook server: %v", err)
		}
		<-webhookErr
	}()

	log.Printf("voucherbot serving webhooks on :%d, health on %v", cfg.WebhookPort, healthListener.Addr())
	return runLoop(ctx, driver, cfg.PollInterval)
}

func runLoop(ctx context.Context, driver *Driver, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := driver.RunCycle(ctx); err != nil {
			log.Printf("poll cycle: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type messageHook struct {
	Topic forum.Topic  `json:"topic"`
	Posts []forum.Post `json:"posts"`
}

type mailHook struct {
	Param string `json:"param"`
	Mail  Mail   `json:"mail"`
}

// NewWebhookMux exposes the inline entry points: the forum's reply webhook
// and the mail ingress, both invoked between poll cycles.
func NewWebhookMux(driver *Driver) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /hooks/message", func(w http.ResponseWriter, r *http.Request) {
		var hook messageHook
		if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		handled, err := driver.HandleMessage(r.Context(), hook.Topic, hook.Posts)
		if err != nil {
			log.Printf("handle message webhook: %v", err)
			http.Error(w, "handler failed", http.StatusInternalServerError)
			return
		}
		if !handled && hook.Topic.ID != 0 {
			if err := driver.ReplyNotUnderstood(r.Context(), hook.Topic.ID); err != nil {
				log.Printf("send fallback reply: %v", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /hooks/mail", func(w http.ResponseWriter, r *http.Request) {
		var hook mailHook
		if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if err := driver.HandleMail(r.Context(), hook.Param, hook.Mail); err != nil {
			log.Printf("handle mail webhook: %v", err)
			http.Error(w, "handler failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}
