package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"policydesk/internal/billinggroup/client"
	"policydesk/internal/billinggroup/directory"
	"policydesk/internal/billinggroup/events"
	"policydesk/internal/billinggroup/handler"
	"policydesk/internal/billinggroup/mailing"
	bgmetrics "policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/ports"
	"policydesk/internal/billinggroup/resolver"
	"policydesk/internal/billinggroup/resolver/cache"
	"policydesk/internal/billinggroup/service"
	"policydesk/internal/billinggroup/store"
	"policydesk/internal/billinggroup/store/postgres"
	"policydesk/internal/billinggroup/store/sqlite"
	"policydesk/internal/billinggroup/synchronizer"
	"policydesk/internal/billinggroup/workingset"
	httpapi "policydesk/internal/http"
	"policydesk/internal/platform/config"
	"policydesk/internal/platform/httpserver"
	"policydesk/internal/platform/logger"
	"policydesk/internal/platform/metrics"
	pgplatform "policydesk/internal/platform/postgres"
	redisplatform "policydesk/internal/platform/redis"
	txcontext "policydesk/pkg/platform/tx"
)

// groupStore is what the registry needs from a storage backend.
type groupStore interface {
	service.GroupStore
	io.Closer
}

type sqlStore struct {
	*postgres.Store
	db *sql.DB
}

func (s sqlStore) Close() error { return s.db.Close() }

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("policydesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.New()
	bgMetrics := bgmetrics.New()
	health := map[string]httpapi.HealthCheck{}

	st, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "store", st)

	var publisher service.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, events.WithLogger(log))
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		defer kp.Close()
		if err := kp.EnsureTopic(ctx, 3, 1); err != nil {
			// publishing is best effort; the broker may auto-create the topic
			log.Warn("failed to ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		publisher = kp
		log.Info("publishing billing group events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	registryOpts := []service.RegistryOption{
		service.WithPublisher(publisher),
		service.WithRegistryLogger(log),
	}
	if sq, ok := st.(sqlStore); ok {
		registryOpts = append(registryOpts, service.WithTxRunner(txcontext.NewRunner(sq.db)))
	}
	registry := service.NewRegistry(st, registryOpts...)

	policies, contacts, err := openDirectory(cfg, log)
	if err != nil {
		return err
	}
	rc, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		defer closeQuietly(log, "redis", rc)
		policies = cache.New(policies, rc.Client, cache.WithTTL(cfg.Directory.CacheTTL), cache.WithLogger(log))
		health["redis"] = rc.Health
		log.Info("directory cache enabled", "ttl", cfg.Directory.CacheTTL)
	}

	var backend ports.GroupBackend = registry
	if cfg.BillingGroupsAPIURL != "" {
		remote, err := client.New(cfg.BillingGroupsAPIURL,
			client.WithTimeout(cfg.CollaboratorTimeout),
			client.WithLogger(log),
		)
		if err != nil {
			return fmt.Errorf("billing groups collaborator: %w", err)
		}
		backend = remote
		log.Info("editor persists to remote collaborator", "url", cfg.BillingGroupsAPIURL)
	}

	sets := workingset.New()
	syncer := synchronizer.New(backend, sets,
		synchronizer.WithDebounce(cfg.Sync.Debounce),
		synchronizer.WithTimeout(cfg.Sync.Timeout),
		synchronizer.WithIdleTTL(cfg.Sync.IdleTTL),
		synchronizer.WithLogger(log),
		synchronizer.WithMetrics(bgMetrics),
	)
	editor := service.NewEditor(backend,
		resolver.New(policies, resolver.WithLogger(log)),
		mailing.New(contacts,
			mailing.WithLogger(log),
			mailing.WithMetrics(bgMetrics),
			mailing.WithConcurrency(cfg.MailingConcurrency),
		),
		sets, syncer,
		service.WithLogger(log),
		service.WithMetrics(bgMetrics),
	)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		Metrics:        httpMetrics,
		RequestTimeout: cfg.Sync.Timeout + cfg.CollaboratorTimeout,
		AdminToken:     cfg.AdminToken,
		Public: []httpapi.Registrar{
			handler.NewStorage(registry, log),
			handler.NewDirectory(policies, contacts, log),
		},
		Editor: []httpapi.Registrar{handler.NewEditor(editor, log)},
		Health: health,
	})
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting policydesk", "addr", cfg.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	// pending edits are flushed before the store and publisher close
	if err := syncer.Close(shutdownCtx); err != nil {
		log.Error("failed to flush pending billing group edits", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (groupStore, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("using sqlite store", "path", cfg.SQLitePath)
		return s, nil
	case config.StorePostgres:
		db, err := pgplatform.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("using postgres store")
		return sqlStore{Store: postgres.New(db), db: db}, nil
	default:
		log.Warn("using in-memory store; billing groups are lost on restart")
		return store.NewInMemory(), nil
	}
}

func openDirectory(cfg config.Server, log *slog.Logger) (ports.PolicyDirectory, ports.ContactDirectory, error) {
	if url := cfg.Directory.PolicyAPIURL; url != "" {
		remote, err := client.New(url,
			client.WithTimeout(cfg.CollaboratorTimeout),
			client.WithLogger(log),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("policy directory: %w", err)
		}
		log.Info("using remote policy directory", "url", url)
		return remote, remote, nil
	}
	if path := cfg.Directory.SeedFile; path != "" {
		dir, err := directory.FromFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load directory seed: %w", err)
		}
		log.Info("using seeded policy directory", "file", path)
		return dir, dir, nil
	}
	log.Info("using demo policy directory", "policy_id", directory.DemoPolicyID.String())
	dir := directory.Demo()
	return dir, dir, nil
}

func closeQuietly(log *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "resource", name, "error", err)
	}
}
