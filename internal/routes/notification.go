package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/services"
	"taskly/pkg/constants"
	"taskly/pkg/middleware"
)

func runNotificationRouter(secureGroup *echo.Group, notificationService services.NotificationServiceInterface, authMW *middleware.AuthMiddleware, logger *zap.Logger) {
	ctrl := controllers.NewNotificationController(notificationService, logger)

	notifications := secureGroup.Group("/notifications")
	notifications.GET("", ctrl.List)
	notifications.GET("/unread-count", ctrl.UnreadCount)
	notifications.PATCH("/:id/read", ctrl.MarkRead)
	notifications.POST("/read-all", ctrl.MarkAllRead)
	notifications.POST("", ctrl.Send, authMW.RequireRoles(constants.RoleSuperAdmin, constants.RoleSupervisor))
	notifications.DELETE("/:id", ctrl.Delete, authMW.RequireRoles(constants.RoleSuperAdmin))
}
