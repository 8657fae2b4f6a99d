package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecomtel/ussd-bridge/internal/config"
	"github.com/ecomtel/ussd-bridge/internal/db"
	"github.com/ecomtel/ussd-bridge/internal/forwarder"
	httpSrv "github.com/ecomtel/ussd-bridge/internal/http"
	"github.com/ecomtel/ussd-bridge/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		// optional read-side store for /v1/reports/sessions
		var chDB *sqlx.DB
		if cfg.ClickHouse.DSN != "" {
			chDB, err = db.NewClickHouseConnection(db.ClickHouseOpts{
				DSN:             cfg.ClickHouse.DSN,
				MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
				MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
				ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
				PingTimeout:     cfg.ClickHouse.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
		}

		// optional redis for the gateway rate limiter
		var redisClient *redis.Client
		if cfg.Redis.Addr != "" {
			redisClient, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
		}

		partner := forwarder.NewHTTPPartner(
			cfg.Partner.URL,
			cfg.Partner.TimeoutMs,
			cfg.Partner.Breaker.FailThreshold,
			cfg.Partner.Breaker.OpenForMs,
		)
		fwd := forwarder.New(partner, cfg.Partner.User, cfg.Partner.Pass, cfg.Forward.Delay(), logger.Log)

		server := httpSrv.NewServer(cfg, mysqlDB, chDB, redisClient, fwd)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.ListenAddr())
			errCh <- server.Start(cfg.HTTP.ListenAddr())
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		// drain deferred forwards: pending timers plus one partner call
		drainCtx, drainCancel := context.WithTimeout(context.Background(),
			cfg.Forward.Delay()+time.Duration(cfg.Partner.TimeoutMs)*time.Millisecond+time.Second)
		defer drainCancel()
		if err := fwd.Drain(drainCtx); err != nil {
			log.Printf("forwarder drain: %v", err)
		}

		return nil
	},
}
