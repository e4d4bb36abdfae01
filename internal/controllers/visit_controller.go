package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/services"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/utils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	visitDedupTTL   = 3 * time.Second
)

var errDuplicateRequest = apperrors.NewHttpError(http.StatusTooManyRequests, "Запрос уже обрабатывается, подождите", apperrors.ErrBadRequest)

type VisitController struct {
	visitService services.VisitServiceInterface
	deduplicator *RequestDeduplicator
	logger       *zap.Logger
}

func NewVisitController(visitService services.VisitServiceInterface, deduplicator *RequestDeduplicator, logger *zap.Logger) *VisitController {
	return &VisitController{visitService: visitService, deduplicator: deduplicator, logger: logger}
}

func (c *VisitController) CheckIn(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.CheckInDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if !c.deduplicator.TryAcquire(userID, "check-in", visitDedupTTL) {
		c.logger.Warn("Повторный check-in проигнорирован", zap.Uint64("userID", userID))
		return utils.ErrorResponse(ctx, errDuplicateRequest)
	}

	res, err := c.visitService.CheckIn(reqCtx, userID, payload)
	if err != nil {
		c.deduplicator.Release(userID, "check-in")
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, res.Message, http.StatusCreated)
}

func (c *VisitController) CheckOut(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.CheckOutDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if !c.deduplicator.TryAcquire(userID, "check-out", visitDedupTTL) {
		return utils.ErrorResponse(ctx, errDuplicateRequest)
	}

	res, err := c.visitService.CheckOut(reqCtx, userID, payload)
	if err != nil {
		c.deduplicator.Release(userID, "check-out")
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, res.Message, http.StatusOK)
}

func (c *VisitController) loadRoute(ctx echo.Context) (*dto.DailyRouteDTO, error) {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetRoleFromCtx(reqCtx)
	if err != nil {
		return nil, err
	}

	var query dto.RouteQueryDTO
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &query); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "Неверные параметры запроса", err)
	}
	if err := ctx.Validate(&query); err != nil {
		return nil, err
	}
	return c.visitService.DailyRoute(reqCtx, userID, role, query)
}

func (c *VisitController) DailyRoute(ctx echo.Context) error {
	route, err := c.loadRoute(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, route, "Маршрут за день", http.StatusOK)
}

func (c *VisitController) ExportDailyRoute(ctx echo.Context) error {
	route, err := c.loadRoute(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	buf, err := c.visitService.ExportDailyRoute(ctx.Request().Context(), route)
	if err != nil {
		c.logger.Error("Не удалось сформировать xlsx маршрута", zap.Uint64("representativeID", route.Representative.ID), zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	fileName := fmt.Sprintf("route_%d_%s.xlsx", route.Representative.ID, route.Date)
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
