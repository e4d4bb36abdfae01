package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskly/internal/routes"
	"taskly/internal/services"
	"taskly/pkg/config"
	"taskly/pkg/database/migrations"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/eventbus"
	"taskly/pkg/middleware"
	"taskly/pkg/utils"
	appwebsocket "taskly/pkg/websocket"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP/WebSocket сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "применить миграции перед запуском")
	return cmd
}

func newEcho(cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewCustomValidator()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				_ = utils.ErrorResponse(c, apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err))
			}
			return err
		},
	}))
	e.Use(middleware.InjectLogger(logger))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{"Content-Disposition"},
	}))
	return e
}

func runServe(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger

	if migrate {
		if err := migrations.Up(ctx, env.db); err != nil {
			return err
		}
		logger.Info("Миграции применены")
	}

	hub := appwebsocket.NewHub(logger)
	bus := eventbus.New(logger)
	rt := env.runtime(hub, bus)

	if err := rt.Settings.Seed(ctx); err != nil {
		return err
	}

	e := newEcho(env.cfg, logger)
	routes.InitRouter(e, rt, logger)

	go rt.Deduplicator.Cleanup(ctx, time.Minute)

	var scheduler *services.TelegramPollScheduler
	switch env.cfg.Telegram.Mode {
	case config.TelegramModeWebhook:
		if err := registerWebhook(ctx, rt, env.cfg); err != nil {
			logger.Error("Не удалось зарегистрировать Telegram Webhook", zap.Error(err))
		}
	default:
		scheduler, err = services.NewTelegramPollScheduler(rt.TelegramLink, env.cfg.Telegram.PollSchedule, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", env.cfg.Server.Port))
		if err := e.Start(":" + env.cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	case err := <-serverErr:
		logger.Error("Ошибка запуска сервера", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Сервер остановлен с ошибкой", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	bus.Wait()
	rt.Notifications.Wait()

	logger.Info("Сервер остановлен")
	return nil
}
