package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/services"
)

func runPushRouter(secureGroup *echo.Group, pushService services.PushServiceInterface, logger *zap.Logger) {
	ctrl := controllers.NewPushController(pushService, logger)

	secureGroup.POST("/push/subscribe", ctrl.Subscribe)
	secureGroup.POST("/push/unsubscribe", ctrl.Unsubscribe)
	secureGroup.GET("/push/vapid-key", ctrl.VapidKey)
}
