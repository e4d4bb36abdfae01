package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/services"
)

func runTelegramRouter(api *echo.Group, secureGroup *echo.Group, linkService services.TelegramLinkServiceInterface, logger *zap.Logger) {
	tgController := controllers.NewTelegramController(linkService, logger)

	secureGroup.GET("/telegram/link", tgController.Link)
	secureGroup.GET("/telegram/status", tgController.Status)
	secureGroup.POST("/telegram/unlink", tgController.Unlink)

	// Вебхук вызывает Telegram, JWT там нет.
	api.POST("/webhooks/telegram", tgController.HandleWebhook)
}
