// Файл: app/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskly/internal/routes"
	"taskly/pkg/config"
	"taskly/pkg/database/postgresql"
	"taskly/pkg/eventbus"
	applogger "taskly/pkg/logger"
	"taskly/pkg/service"
	"taskly/pkg/webpush"
	appwebsocket "taskly/pkg/websocket"
)

var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "taskly",
		Short:        "Taskly - присутствие, уведомления и визиты",
		Long:         "HTTP/WebSocket сервер Taskly: онлайн-статус, уведомления по каналам, геозоны визитов и привязка Telegram.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTelegramCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskly %s (commit: %s)\n", Version, Commit)
		},
	}
}

// environment - общие ресурсы для команд, которым нужны БД и Redis.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
}

func openEnvironment(ctx context.Context) (*environment, error) {
	logger := applogger.NewLogger()
	cfg := config.New()

	db, err := postgresql.Connect(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Redis.Address, err)
	}

	return &environment{cfg: cfg, logger: logger, db: db, redis: redisClient}, nil
}

func (env *environment) Close() {
	_ = env.redis.Close()
	env.db.Close()
	_ = env.logger.Sync()
}

func (env *environment) runtime(hub *appwebsocket.Hub, bus *eventbus.Bus) *routes.Runtime {
	if hub == nil {
		hub = appwebsocket.NewHub(env.logger)
	}
	if bus == nil {
		bus = eventbus.New(env.logger)
	}
	jwtSvc := service.NewJWTService(env.cfg.JWT.SecretKey, env.cfg.JWT.AccessTokenTTL, env.cfg.JWT.RefreshTokenTTL, env.logger)
	return routes.NewRuntime(routes.Dependencies{
		DB:     env.db,
		Redis:  env.redis,
		JWT:    jwtSvc,
		Hub:    hub,
		Bus:    bus,
		Sender: webpush.NewSender(),
		Config: env.cfg,
		Logger: env.logger,
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
