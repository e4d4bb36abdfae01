package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/services"
)

func runVisitRouter(secureGroup *echo.Group, visitService services.VisitServiceInterface, deduplicator *controllers.RequestDeduplicator, logger *zap.Logger) {
	ctrl := controllers.NewVisitController(visitService, deduplicator, logger)

	visits := secureGroup.Group("/visits")
	visits.POST("/check-in", ctrl.CheckIn)
	visits.POST("/check-out", ctrl.CheckOut)
	// Права на чужой маршрут проверяет сервис.
	visits.GET("/route", ctrl.DailyRoute)
	visits.GET("/route/export", ctrl.ExportDailyRoute)
}
