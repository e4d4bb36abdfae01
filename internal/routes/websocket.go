package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
)

func runWebSocketRouter(e *echo.Echo, secureGroup *echo.Group, rt *Runtime, logger *zap.Logger) {
	wsCtrl := controllers.NewWebSocketController(rt.Hub, rt.JWT, logger)
	presenceCtrl := controllers.NewPresenceController(rt.Hub, logger)

	// Авторизация канала проверяется внутри контроллера: токен в query или первым сообщением.
	e.GET("/ws", wsCtrl.ServeWs)
	secureGroup.GET("/presence/online", presenceCtrl.Online)
}
