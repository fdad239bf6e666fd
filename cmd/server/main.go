package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"private-chat/internal/auth"
	"private-chat/internal/fanout"
	"private-chat/internal/metrics"
	"private-chat/internal/server"
	"private-chat/internal/session"
	"private-chat/internal/storage"
)

// appConfig holds process level settings not owned by any package
type appConfig struct {
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"0"`
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	app := appConfig{}
	if err := env.Parse(&app); err != nil {
		log.Fatalf("Cannot parse app config: %v", err)
	}

	logger, err := newLogger(app.LogFormat)
	if err != nil {
		log.Fatalf("zap logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	var (
		serverCfg  server.EnvConfig
		sessionCfg session.EnvConfig
		dbCfg      storage.Config
		redisCfg   fanout.RedisConfig
		authCfg    auth.Config
	)
	for _, cfg := range []interface{}{&serverCfg, &sessionCfg, &dbCfg, &redisCfg, &authCfg} {
		if err := env.Parse(cfg); err != nil {
			sugar.Fatalf("Cannot parse env config: %v", err)
		}
	}

	metrics.Register()

	ctx := context.Background()

	store, err := storage.NewStore(ctx, sugar, dbCfg,
		storage.ConnectionTimeout(app.DBConnectTimeout),
		storage.MaxConns(app.DBMaxConns),
	)
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	var (
		fabric fanout.Fabric
		rdb    *redis.Client
	)
	if redisCfg.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("Cannot connect to redis at %s: %v", redisCfg.Addr, err)
		}
		sugar.Infof("Using redis fanout at %s", redisCfg.Addr)
		fabric = fanout.NewRedisFabric(ctx, sugar, rdb, redisCfg.ChannelPrefix)
	} else {
		sugar.Info("Using in-process fanout")
		fabric = fanout.NewHub()
	}

	sessions := session.NewHandler(sugar, fabric, store, session.WithEnvConfig(sessionCfg))

	serverOpts := []server.Option{
		server.WithEnvConfig(serverCfg),
		server.RegisterAfterShutdown(func() {
			ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
			defer cancel()
			if err := sessions.Close(ctx); err != nil {
				sugar.Errorf("Storage calls did not finish: %v", err)
			}
		}),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing fanout")
			if err := fabric.Close(); err != nil {
				sugar.Errorf("fabric.Close: %v", err)
			}
			if rdb != nil {
				if err := rdb.Close(); err != nil {
					sugar.Errorf("rdb.Close: %v", err)
				}
			}
		}),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing store")
			store.Close()
			sugar.Info("Store is closed")
		}),
	}

	srv, err := server.NewServer(sugar, sessions, auth.NewVerifier(authCfg), serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
