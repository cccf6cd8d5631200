// Command authd is the reference authentication daemon for the LearningCrew
// platform. It wires the crewauth engine to Postgres (durable refresh
// records), Redis (blacklist and cache mirror), and a small HTTP surface:
//
//	POST /api/auth/login    — issue a credential pair
//	POST /api/auth/refresh  — rotate a refresh credential
//	POST /api/auth/logout   — revoke the presented access credential
//	GET  /api/me            — gate-protected sample route
//	GET  /metrics           — Prometheus counters
//	GET  /healthz           — liveness
//
// Identity verification is out of scope here: subjects come from the
// auth.subjects config list. A real deployment embeds the library with its
// own SubjectResolver instead.
package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	crewauth "github.com/DEPthes/crewauth"
	"github.com/DEPthes/crewauth/refreshstate"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authd", zap.String("env", cfg.App.Env), zap.String("addr", cfg.Server.HTTPAddr))

	if cfg.DB.Migrate {
		if err := runMigrations(cfg.DB.DSN); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	pool, err := pgxpool.New(rootCtx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(rootCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(rootCtx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	engine, err := crewauth.New().
		WithConfig(engineConfig(cfg)).
		WithRedis(rdb).
		WithRefreshStore(refreshstate.NewPostgresStore(pool, cfg.DB.QueryTimeout)).
		WithSubjectResolver(newConfigResolver(cfg.Auth.Subjects)).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("engine build", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      buildRouter(engine, cfg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	logger.Info("bye")
}

func initLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.Log.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func engineConfig(cfg *Config) crewauth.Config {
	out := crewauth.Config{}
	out.JWT.Secret = []byte(cfg.Auth.Secret)
	out.JWT.Issuer = cfg.Auth.Issuer
	out.JWT.AccessTTL = cfg.Auth.AccessTTL
	out.JWT.RefreshTTL = cfg.Auth.RefreshTTL
	out.Refresh.SingleUse = cfg.Auth.SingleUse
	out.Refresh.CacheTTL = cfg.Auth.CacheTTL
	out.Metrics.Enabled = true
	return out
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
