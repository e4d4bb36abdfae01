package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/services"
	"taskly/pkg/constants"
	"taskly/pkg/middleware"
)

func runSettingsRouter(secureGroup *echo.Group, settingsService services.SettingsServiceInterface, authMW *middleware.AuthMiddleware, logger *zap.Logger) {
	ctrl := controllers.NewSettingsController(settingsService, logger)

	settings := secureGroup.Group("/settings", authMW.RequireRoles(constants.RoleSuperAdmin))
	settings.GET("", ctrl.Get)
	settings.PUT("", ctrl.Update)
}
