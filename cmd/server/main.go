package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"usersvc/internal/cache"
	"usersvc/internal/config"
	apphttp "usersvc/internal/http"
	"usersvc/internal/migrations"
	"usersvc/internal/notify"
	"usersvc/internal/repository"
	"usersvc/internal/repository/postgres"
	"usersvc/internal/repository/sqlite"
	"usersvc/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	dialect, err := migrations.ParseDialect(cfg.Database.Driver)
	if err != nil {
		logger.Fatalf("database driver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, dbCloser, err := buildRepository(ctx, dialect, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer dbCloser.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate(dialect, cfg.Database.DSN, logger); err != nil {
			logger.Fatalf("migrate database: %v", err)
		}
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping: %v (lookups fall back to the database)", err)
		}
		users = cache.NewUserRepository(users, rdb, cfg.Redis.TTL, logger)
		logger.Infof("using redis cache at %s", cfg.Redis.Addr)
	}

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier.Close()

	userService := service.NewUserService(users, notifier)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func buildRepository(ctx context.Context, dialect migrations.Dialect, cfg config.Config) (repository.UserRepository, io.Closer, error) {
	switch dialect {
	case migrations.DialectSQLite:
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), db, nil
	case migrations.DialectPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.DSN, postgres.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(pool), closerFunc(func() error { pool.Close(); return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

func migrate(dialect migrations.Dialect, dsn string, logger *logrus.Logger) error {
	runner, err := migrations.NewRunner(dialect, dsn, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}

func buildNotifier(cfg config.Config, logger *logrus.Logger) (notify.UserNotifier, io.Closer) {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if len(cfg.Kafka.Brokers) == 0 {
		return notifiers, closerFunc(func() error { return nil })
	}

	kafkaNotifier := notify.NewKafkaNotifier(
		notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		cfg.Kafka.WriteTimeout,
		logger,
	)
	logger.Infof("publishing user events to kafka topic %s", cfg.Kafka.Topic)
	return append(notifiers, kafkaNotifier), kafkaNotifier
}
