package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/taskalign/internal/adapter/a2a"
	tahttp "github.com/Strob0t/taskalign/internal/adapter/http"
	tamcp "github.com/Strob0t/taskalign/internal/adapter/mcp"
	tanats "github.com/Strob0t/taskalign/internal/adapter/nats"
	"github.com/Strob0t/taskalign/internal/adapter/natskv"
	taotel "github.com/Strob0t/taskalign/internal/adapter/otel"
	"github.com/Strob0t/taskalign/internal/adapter/ristretto"
	"github.com/Strob0t/taskalign/internal/adapter/tiered"
	"github.com/Strob0t/taskalign/internal/adapter/ws"
	"github.com/Strob0t/taskalign/internal/logger"
	"github.com/Strob0t/taskalign/internal/middleware"
	"github.com/Strob0t/taskalign/internal/port/cache"
	"github.com/Strob0t/taskalign/internal/port/notifier"
	"github.com/Strob0t/taskalign/internal/service"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// dispatch runs a subcommand. With no arguments the HTTP service starts.
func dispatch(args []string) error {
	if len(args) == 0 {
		return run()
	}
	switch args[0] {
	case "serve":
		return run()
	case "verify":
		return runVerify(args[1:])
	case "providers":
		return runProviders(args[1:])
	case "rules":
		return runRules(args[1:])
	case "version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: taskalign [command] [options]

Commands:
  serve       Start the HTTP API (default)
  verify      Verify task-to-code alignment for one repository
  providers   List registered trackers, code hosts and notifiers
  rules       Print the verdict classification table
  version     Print the version
  help        Show this help message

Examples:
  taskalign serve
  taskalign verify --repo acme/api --project "Backend Team"
  taskalign verify --repo acme/api --status "In Progress,Done" --json
  taskalign verify --repo acme/api --server http://localhost:8090/mcp
  taskalign rules --server http://localhost:8090/mcp
`)
}

func run() error {
	cfg, vault, err := loadConfig()
	if err != nil {
		return err
	}

	log, closeLog := logger.New(cfg.Logging, logger.WithRedactor(vault))
	slog.SetDefault(log)
	defer closeLog.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"tracker", cfg.Tracker.Provider,
		"code_host", cfg.CodeHost.Provider,
		"nats", cfg.NATS.URL != "",
		"secrets", vault.Keys(),
	)
	logCredentials(vault)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reloadSecretsOnHUP(ctx, vault)

	// --- Telemetry ---

	shutdownOTEL, err := taotel.Setup(ctx, taotel.Config{
		Enabled:     cfg.OTEL.Enabled,
		Endpoint:    cfg.OTEL.Endpoint,
		Insecure:    cfg.OTEL.Insecure,
		ServiceName: cfg.Logging.Service,
		SampleRate:  cfg.OTEL.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := taotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB<<20, cfg.Cache.ProjectTTL)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var appCache cache.Cache = l1

	var queue *tanats.Queue
	if cfg.NATS.URL != "" {
		queue, err = tanats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()
		slog.Info("nats connected", "url", cfg.NATS.URL)

		kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		appCache = tiered.New(l1, natskv.New(kv, "taskalign"), cfg.Cache.ProjectTTL)
	}

	// --- Services ---

	alignSvc := newAlignmentService(cfg, appCache)
	alignSvc.SetMetrics(metrics)
	if err := alignSvc.CheckConfigured(); err != nil {
		slog.Warn("alignment providers incomplete, verifications will fail until configured", "error", err)
	}

	var notifiers []notifier.Notifier
	for name, url := range map[string]string{
		"slack":   cfg.Notify.SlackWebhookURL,
		"discord": cfg.Notify.DiscordWebhookURL,
	} {
		if url == "" {
			continue
		}
		n, err := notifier.New(name, map[string]string{"webhook_url": url})
		if err != nil {
			return fmt.Errorf("%s notifier: %w", name, err)
		}
		notifiers = append(notifiers, n)
	}
	if len(notifiers) > 0 {
		notifySvc := service.NewNotificationService(notifiers, nil)
		notifySvc.SetMinMisaligned(cfg.Notify.MinMisaligned)
		alignSvc.SetNotifications(notifySvc)
	}

	if queue != nil && cfg.NATS.PublishReports {
		alignSvc.SetEvents(queue)
	}
	if queue != nil && cfg.NATS.ConsumeVerify {
		worker := service.NewVerifyWorker(alignSvc, queue)
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("verify worker: %w", err)
		}
		defer worker.Stop()
	}

	webhookSvc := service.NewWebhookService(alignSvc, cfg.Webhook.Projects, cfg.Server.RequestTimeout)
	defer webhookSvc.Wait()

	// --- MCP ---

	if cfg.MCP.Enabled {
		mcpSrv := tamcp.NewServer(
			tamcp.ServerConfig{Addr: cfg.MCP.Addr, Name: "taskalign", Version: version, APIKey: cfg.MCP.APIKey},
			tamcp.ServerDeps{Verifier: alignSvc, Providers: alignSvc},
		)
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(sctx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	// --- HTTP ---

	handlers := &tahttp.Handlers{
		Alignment: alignSvc,
		Webhooks:  webhookSvc,
		Version:   version,
		Checks:    map[string]func() bool{},
	}
	if queue != nil {
		handlers.Checks["nats"] = queue.IsConnected
	}
	if cfg.Server.LiveFeed {
		hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin)...)
		defer hub.Close()
		alignSvc.SetBroadcaster(hub)
		handlers.LiveFeed = http.HandlerFunc(hub.HandleWS)
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst,
		"/health", "/health/ready", middleware.WebSocketPath, "/.well-known/agent.json")
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(tahttp.SecurityHeaders)
	r.Use(tahttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tahttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	r.Use(middleware.APIKey(cfg.APIKey))
	r.Use(requestTimeout(cfg.Server.RequestTimeout))

	tahttp.MountRoutes(r, handlers, cfg.Webhook, middleware.Idempotency(appCache, cfg.Cache.IdempotencyTTL))

	if cfg.A2A.Enabled {
		agent := a2a.NewHandler(cfg.A2A.BaseURL, version, alignSvc, appCache, cfg.A2A.TaskTTL, cfg.Server.RequestTimeout)
		defer agent.Wait()
		agent.MountRoutes(r)
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           taotel.HTTPMiddleware(cfg.Logging.Service)(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
