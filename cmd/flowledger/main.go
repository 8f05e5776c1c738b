package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"flowledger/internal/backend"
	"flowledger/internal/cache"
	"flowledger/internal/cli"
	"flowledger/internal/events"
	apphttp "flowledger/internal/http"
	"flowledger/internal/services"
	"flowledger/internal/session"
	"flowledger/internal/store"
)

// publishingResolver wraps every resolved store in the ledger service so
// writes announce themselves on the change-event exchange.
type publishingResolver struct {
	factory   *backend.Factory
	publisher services.ChangePublisher
}

func (r *publishingResolver) ForOwner(ctx context.Context, ownerID string) (store.Store, store.Mode, error) {
	st, mode, err := r.factory.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, mode, err
	}
	return services.NewLedgerService(st, r.publisher), mode, nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(backendCfg, logger)
	defer factory.Close()

	// Token verification only runs when the remote stack is configured.
	// Without it every request resolves the demo identity.
	var verifier session.Provider
	cacheManager := cache.NewManager()
	if cfg.IDTokenAudience != "" {
		provider := session.NewTokenProvider(cfg.IDTokenAudience, cfg.TokenCacheSize, cfg.TokenCacheTTL)
		cacheManager.Register(provider.Cache())
		verifier = provider
		logger.Info("ID token verification enabled", "audience", cfg.IDTokenAudience)
	} else {
		logger.Info("ID token verification disabled - demo identity only")
	}
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}

	resolver := &publishingResolver{factory: factory, publisher: publisher}
	sessions := session.NewManager(verifier)

	srv := apphttp.NewServer(":"+cfg.Port, resolver, sessions, verifier, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // the stream endpoint holds connections open
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("Starting flowledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
