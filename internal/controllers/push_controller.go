package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/services"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/utils"
)

type PushController struct {
	pushService services.PushServiceInterface
	logger      *zap.Logger
}

func NewPushController(pushService services.PushServiceInterface, logger *zap.Logger) *PushController {
	return &PushController{pushService: pushService, logger: logger}
}

func (c *PushController) Subscribe(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.PushSubscribeDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.pushService.Subscribe(reqCtx, userID, payload.Subscription); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Подписка сохранена", http.StatusOK)
}

func (c *PushController) Unsubscribe(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.PushUnsubscribeDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.pushService.Unsubscribe(reqCtx, userID, payload.Endpoint); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Подписка удалена", http.StatusOK)
}

func (c *PushController) VapidKey(ctx echo.Context) error {
	key, err := c.pushService.VapidPublicKey(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.VapidKeyDTO{PublicKey: key}, "VAPID-ключ", http.StatusOK)
}
