// integrationsd serves the integration API: Google Calendar on behalf of
// connected users plus signed Cloudinary upload grants.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/closepilot/integrations/core"
	"github.com/closepilot/integrations/providers/cloudinary"
	"github.com/closepilot/integrations/providers/google"
	sqlstore "github.com/closepilot/integrations/store/sql"
	"github.com/closepilot/integrations/transport"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger := newSlogLogger(parseLogLevel(envOr("LOG_LEVEL", "info")))
	if err := run(logger); err != nil {
		logger.Fatal("integrationsd exited", "error", err)
	}
}

func run(logger *slogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := core.NewCfgxConfigProvider(envRawConfigLoader{})
	cfg, err := provider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	credentialStore, closeStore, err := buildCredentialStore(ctx)
	if err != nil {
		return fmt.Errorf("build credential store: %w", err)
	}
	defer closeStore()

	googleProvider, err := google.New(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
	})
	if err != nil {
		return fmt.Errorf("build google provider: %w", err)
	}

	cloudinaryProvider, err := cloudinary.New(cloudinary.Config{
		CloudName: cfg.Uploads.CloudName,
		APIKey:    cfg.Uploads.APIKey,
		APISecret: cfg.Uploads.APISecret,
	})
	if err != nil {
		return fmt.Errorf("build cloudinary provider: %w", err)
	}

	service, err := core.NewService(cfg,
		core.WithLogger(logger),
		core.WithCredentialStore(credentialStore),
		core.WithTokenExchanger(googleProvider),
		core.WithIdentityResolver(googleProvider),
		core.WithAuthURLBuilder(googleProvider),
		core.WithCalendarAPI(googleProvider),
		core.WithStorageAPI(cloudinaryProvider),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	handler, err := transport.NewHandler(service, logger)
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}

	addr := ":" + envOr("PORT", "8001")
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("integrationsd listening", "addr", addr, "service", cfg.ServiceName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", shutdownGrace.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool {
	return false
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "integrationsd"
}

// buildCredentialStore picks the credential backend from STORE_DRIVER:
// in-process memory (the default), sqlite3, or postgres.
func buildCredentialStore(ctx context.Context) (core.CredentialStore, func(), error) {
	driver := envOr("STORE_DRIVER", "memory")
	if driver == "memory" {
		return core.NewMemoryCredentialStore(), func() {}, nil
	}

	var dialect schema.Dialect
	switch driver {
	case "sqlite3":
		dialect = sqlitedialect.New()
	case "postgres":
		dialect = pgdialect.New()
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	dsn := envOr("STORE_DSN", "")
	if dsn == "" {
		return nil, nil, fmt.Errorf("STORE_DSN is required for store driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	client, err := persistence.New(persistenceConfig{driver: driver, server: dsn}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("new persistence client: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := factory.EnsureSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return factory.CredentialStore(), func() { _ = client.Close() }, nil
}
