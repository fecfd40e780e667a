// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Parse admin HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to MongoDB.
//  4. Connect to Redis.
//  5. Run index migrations (idempotent).
//  6. Load the JWT signing keys.
//  7. Wire the admin, session and schema handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/parseadmin/internal/api"
	"github.com/taibuivan/parseadmin/internal/platform/config"
	"github.com/taibuivan/parseadmin/internal/platform/constants"
	"github.com/taibuivan/parseadmin/internal/platform/mail"
	"github.com/taibuivan/parseadmin/internal/platform/migration"
	mongostore "github.com/taibuivan/parseadmin/internal/platform/mongo"
	redisstore "github.com/taibuivan/parseadmin/internal/platform/redis"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/rest"
	"github.com/taibuivan/parseadmin/internal/schema"
	"github.com/taibuivan/parseadmin/internal/storage"
	"github.com/taibuivan/parseadmin/internal/users/admin"
	"github.com/taibuivan/parseadmin/internal/users/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("verify_user_emails", cfg.VerifyUserEmails),
	)

	// Root context for startup. A 30s deadline surfaces misconfiguration
	// quickly instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. MongoDB ────────────────────────────────────────────────────────
	mongoClient, err := mongostore.NewClient(startupCtx, cfg.MongoURL, log)
	must(log, err, "connect to mongo")
	defer func() {
		log.Info("closing mongo client")
		if cerr := mongostore.Disconnect(mongoClient, 5*time.Second); cerr != nil {
			log.Error("mongo disconnect error", slog.Any("error", cerr))
		}
	}()
	database := storage.NewMongoDatabase(mongoClient.Database(cfg.MongoDatabase))

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.MongoURL, cfg.MongoDatabase, cfg.MigrationPath, log), "run migrations")

	// ── 6. Auth Service ───────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return mongostore.Ping(context.Background(), mongoClient)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	var mailer admin.MailAdapter
	if cfg.MailAdapter == "log" {
		mailer = mail.NewLogAdapter(cfg.MailFrom, log.With(slog.String("component", "mail")))
	}

	restStore := rest.NewStore(database)

	adminController, err := admin.NewController(restStore, mailer, cfg, log.With(slog.String("component", "admin")))
	must(log, err, "initialize admin controller")

	schemaCollection := schema.NewCollection(database.Collection(cfg.SchemaCollection), log.With(slog.String("component", "schema")))

	sessionService := session.NewService(restStore, session.NewRedisStore(rdb), jwtSvc, session.Options{
		SessionTTL:           cfg.SessionTTL,
		RequireVerifiedEmail: cfg.VerifyUserEmails,
	}, log.With(slog.String("component", "session")))

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Session:   session.NewHandler(sessionService),
		Admin:     admin.NewHandler(adminController, cfg.AppID),
		Schema:    schema.NewHandler(schemaCollection),
	}

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
