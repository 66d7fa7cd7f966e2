package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"agriproof/internal/audit"
	"agriproof/internal/auth"
	"agriproof/internal/auth/token"
	"agriproof/internal/platform/config"
	"agriproof/internal/platform/httpserver"
	"agriproof/internal/platform/logger"
	"agriproof/internal/platform/postgres"
	platformredis "agriproof/internal/platform/redis"
	registrymetrics "agriproof/internal/registry/metrics"
	"agriproof/internal/registry/service"
	"agriproof/internal/registry/store"
	id "agriproof/pkg/domain"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminAddress, err := id.ParseAddress(cfg.AdminAddress)
	if err != nil {
		log.Error("invalid admin address", "error", err)
		os.Exit(1)
	}

	// Registry store: Postgres when configured, in-memory otherwise.
	var registryStore service.Store
	var verifierStore service.VerifierStore
	mem := store.NewInMemory()
	registryStore, verifierStore = mem, mem

	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		registryStore, verifierStore = pg, pg
	}

	// Verifier set moves to Redis when configured; claims and enrollments
	// stay in the primary store.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		verifierStore = store.NewRedisVerifierSet(redisClient.Client)
	}

	// Audit pipeline: queue in front of the sinks, drained by a worker.
	auditQueue := audit.NewQueue(cfg.AuditBuffer, log)
	auditStore := audit.NewInMemoryStore()
	sinks := audit.MultiSink{auditStore}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditWorker := audit.NewWorker(sinks, auditQueue.Events(), log)

	registrySvc := service.New(registryStore, verifierStore,
		service.WithLogger(log),
		service.WithMetrics(registrymetrics.New()),
		service.WithAuditPublisher(auditQueue),
	)
	if err := registrySvc.Initialize(ctx, adminAddress); err != nil {
		log.Error("failed to initialize registry", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.JWTSigningKey, "agriproof", "agriproof-api")
	authSvc := auth.New(auth.NewInMemoryCredentialStore(), tokens, registrySvc, cfg.TokenTTL,
		auth.WithLogger(log),
		auth.WithAuditPublisher(auditQueue),
	)
	if cfg.AdminSecret != "" {
		if err := authSvc.Seed(ctx, adminAddress, cfg.AdminSecret); err != nil {
			log.Error("failed to seed admin credential", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("AGRIPROOF_ADMIN_SECRET not set, admin cannot authenticate")
	}

	router := newRouter(log, tokens, registrySvc, authSvc)
	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(auditWorker.Run(gCtx))
	})
	g.Go(func() error {
		log.Info("starting agriproof server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
