package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"virasat/internal/audit"
	"virasat/internal/audit/kafka"
	auditmemory "virasat/internal/audit/store/memory"
	auditpostgres "virasat/internal/audit/store/postgres"
	authhandler "virasat/internal/auth/handler"
	"virasat/internal/auth/mailer"
	authservice "virasat/internal/auth/service"
	"virasat/internal/auth/store/onetime"
	"virasat/internal/auth/store/revocation"
	"virasat/internal/auth/store/user"
	"virasat/internal/document/blob"
	dochandler "virasat/internal/document/handler"
	docservice "virasat/internal/document/service"
	"virasat/internal/document/signer"
	httpapi "virasat/internal/http"
	nomineehandler "virasat/internal/nominee/handler"
	"virasat/internal/platform/config"
	"virasat/internal/platform/httpserver"
	"virasat/internal/platform/logger"
	"virasat/internal/platform/metrics"
	"virasat/internal/platform/postgres"
	"virasat/internal/platform/redis"
	"virasat/internal/vault"
	vaulthandler "virasat/internal/vault/handler"
	vaultmetrics "virasat/internal/vault/metrics"
	vaultservice "virasat/internal/vault/service"
	vaultstore "virasat/internal/vault/store"
	vaultmemory "virasat/internal/vault/store/memory"
	vaultpostgres "virasat/internal/vault/store/postgres"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("postgres migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Postgres-backed stores when a DSN is configured, memory otherwise.
	var (
		userStore   authservice.UserStore      = user.NewMemory()
		vaultStore  vaultstore.Store           = vaultmemory.New()
		auditStore  audit.Store                = auditmemory.New()
		revocations authservice.RevocationList = revocation.NewMemory()
	)
	if db != nil {
		userStore = user.NewPostgres(db)
		vaultStore = vaultpostgres.New(db)
		auditStore = auditpostgres.New(db)
	}
	if redisClient != nil {
		revocations = revocation.NewRedis(redisClient.Client)
	}

	blobStore, err := blob.NewFilesystem(cfg.Storage.Root)
	if err != nil {
		log.Error("blob store init failed", "error", err)
		os.Exit(1)
	}

	// Audit trail: publisher on the request path, worker draining in the
	// background, Kafka fan-out only when brokers are configured.
	inbox := make(chan audit.Event, cfg.Audit.BufferSize)
	publisher := audit.NewPublisher(inbox, log)
	var sink audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaSink, err := kafka.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	worker := audit.NewWorker(auditStore, sink, inbox, log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	platformMetrics := metrics.New()
	tokens := authservice.NewTokenManager(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL, revocations)

	authSvc := authservice.New(userStore, tokens, onetime.NewMemory(), mailer.NewLog(log), publisher, platformMetrics, log, cfg.Auth)
	vaultSvc := vaultservice.New(vault.DefaultRegistry(), vaultStore, publisher, vaultmetrics.New(), log)
	docSvc := docservice.New(blobStore, signer.New(cfg.Storage.SigningKey), cfg.Storage.SignedURLTTL, publisher, log)

	checks := map[string]httpapi.HealthCheck{}
	if db != nil {
		checks["postgres"] = func(r *http.Request) error { return db.PingContext(r.Context()) }
	}
	if redisClient != nil {
		checks["redis"] = func(r *http.Request) error { return redisClient.Health(r.Context()) }
	}

	router := httpapi.NewRouter(log, platformMetrics, checks,
		authhandler.New(authSvc, tokens, log),
		vaulthandler.New(vaultSvc, tokens, log),
		dochandler.New(docSvc, tokens, log),
		nomineehandler.New(publisher, tokens, log),
	)

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting virasat", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
