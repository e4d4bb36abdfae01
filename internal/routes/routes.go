package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/listeners"
	"taskly/internal/repositories"
	"taskly/internal/services"
	"taskly/pkg/config"
	"taskly/pkg/eventbus"
	"taskly/pkg/middleware"
	"taskly/pkg/service"
	"taskly/pkg/webpush"
	appwebsocket "taskly/pkg/websocket"
)

// Dependencies - внешние ресурсы процесса, из которых собираются сервисы.
type Dependencies struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	JWT    service.JWTService
	Hub    *appwebsocket.Hub
	Bus    *eventbus.Bus
	Sender webpush.Sender
	Config *config.Config
	Logger *zap.Logger
}

// Runtime - собранные сервисы. Нужен и HTTP-серверу, и командам CLI.
type Runtime struct {
	Settings      services.SettingsServiceInterface
	Notifications services.NotificationServiceInterface
	Push          services.PushServiceInterface
	TelegramLink  services.TelegramLinkServiceInterface
	Visits        services.VisitServiceInterface
	Hub           *appwebsocket.Hub
	JWT           service.JWTService
	Deduplicator  *controllers.RequestDeduplicator
}

func NewRuntime(deps Dependencies) *Runtime {
	logger := deps.Logger
	logger.Info("NewRuntime: сборка сервисов")

	// --- 1. РЕПОЗИТОРИИ ---
	txManager := repositories.NewTxManager(deps.DB)
	cacheRepo := repositories.NewRedisCacheRepository(deps.Redis)
	userRepo := repositories.NewUserRepository(deps.DB, logger)
	clientRepo := repositories.NewClientRepository(deps.DB)
	notificationRepo := repositories.NewNotificationRepository(deps.DB)
	pushRepo := repositories.NewPushSubscriptionRepository(deps.DB)
	visitRepo := repositories.NewVisitRepository(deps.DB, logger)
	settingsRepo := repositories.NewSettingsRepository(deps.DB)

	// --- 2. СЕРВИСЫ ---
	settingsService := services.NewSettingsService(settingsRepo, cacheRepo, deps.Config, logger)
	pushService := services.NewPushService(pushRepo, settingsService, deps.Sender, deps.Config, logger)
	notificationService := services.NewNotificationService(
		notificationRepo, userRepo, settingsService, deps.Hub, pushService,
		services.DefaultTelegramClientFactory, deps.Config.Notifications, logger,
	)
	linkTokens := service.NewLinkTokenService(deps.Config.JWT.SecretKey, deps.Config.Telegram.LinkTokenTTL)
	telegramLinkService := services.NewTelegramLinkService(
		userRepo, cacheRepo, settingsService, linkTokens,
		services.DefaultTelegramClientFactory, services.NewUpdateWatermark(), logger,
	)
	visitService := services.NewVisitService(visitRepo, clientRepo, userRepo, txManager, deps.Bus, logger)

	// --- 3. СЛУШАТЕЛИ ---
	listeners.NewVisitListener(notificationService, userRepo, logger).Register(deps.Bus)

	return &Runtime{
		Settings:      settingsService,
		Notifications: notificationService,
		Push:          pushService,
		TelegramLink:  telegramLinkService,
		Visits:        visitService,
		Hub:           deps.Hub,
		JWT:           deps.JWT,
		Deduplicator:  controllers.NewRequestDeduplicator(),
	}
}

func InitRouter(e *echo.Echo, rt *Runtime, logger *zap.Logger) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(rt.JWT, logger)
	secureGroup := api.Group("", authMW.Auth)

	runWebSocketRouter(e, secureGroup, rt, logger)
	runNotificationRouter(secureGroup, rt.Notifications, authMW, logger)
	runPushRouter(secureGroup, rt.Push, logger)
	runTelegramRouter(api, secureGroup, rt.TelegramLink, logger)
	runVisitRouter(secureGroup, rt.Visits, rt.Deduplicator, logger)
	runSettingsRouter(secureGroup, rt.Settings, authMW, logger)

	logger.Info("InitRouter: Создание маршрутов завершено")
}
