package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/healthrocket-labs/ignition/internal/api"
	"github.com/healthrocket-labs/ignition/internal/app/cooldown"
	"github.com/healthrocket-labs/ignition/internal/app/eligibility"
	"github.com/healthrocket-labs/ignition/internal/app/reset"
	"github.com/healthrocket-labs/ignition/internal/domain"
	_ "github.com/healthrocket-labs/ignition/internal/infra/metrics" // Register Prometheus metrics
	"github.com/healthrocket-labs/ignition/internal/infra/payments"
	"github.com/healthrocket-labs/ignition/internal/infra/sqlite"
)

// Daemon is the engine runtime. It wires together the store, the cooldown
// ledger, the eligibility gate, the reset scheduler, and the HTTP API.
type Daemon struct {
	Config    Config
	DB        *sqlite.DB
	Ledger    *cooldown.Ledger
	Gate      *eligibility.Gate
	Scheduler *reset.Scheduler
	Server    *api.Server
	cancel    context.CancelFunc
}

// New creates and initializes a Daemon from the loaded configuration.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	contests := domain.DefaultContests()

	dataDir := cfg.Engine.DataDir
	if dataDir == "" {
		dataDir = ignitionHome()
	}

	// Another process holding the WAL lock at startup is transient; retry
	// with exponential backoff before giving up.
	var db *sqlite.DB
	err := backoff.Retry(
		func() error {
			var err error
			db, err = sqlite.Open(dataDir, contests)
			if err != nil {
				log.Printf("[daemon] open store failed: %v, retrying...", err)
			}
			return err
		},
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Hydrate the in-process cooldown view from persisted windows.
	ledger := cooldown.New()
	windows, err := db.CooldownWindows(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hydrate cooldown ledger: %w", err)
	}
	ledger.Hydrate(windows)
	log.Printf("[daemon] cooldown ledger hydrated with %d windows", len(windows))

	gate := eligibility.New(db, db, ledger, contests)

	srv := api.NewServer(db, db, db, gate, ledger, contests)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if cfg.Payments.Endpoint != "" {
		srv.SetPayments(payments.NewClient(cfg.Payments.Endpoint, cfg.Payments.APIKey))
	}

	d := &Daemon{
		Config: cfg,
		DB:     db,
		Ledger: ledger,
		Gate:   gate,
		Server: srv,
	}

	if cfg.Engine.ResetEnabled {
		d.Scheduler = reset.New(db)
		srv.SetScheduler(d.Scheduler)
	}

	return d, nil
}

// Serve starts the reset scheduler and the HTTP server, blocking until
// shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.Scheduler != nil {
		go d.Scheduler.Run(ctx)
		log.Printf("[daemon] reset scheduler armed, next fire %s", reset.NextFire(time.Now(), domain.ReferenceLocation(), reset.Margin))
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	log.Printf("[daemon] ignition serving on http://%s", addr)
	if d.Config.Telemetry.Prometheus {
		log.Printf("[daemon] metrics on http://%s/metrics", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
