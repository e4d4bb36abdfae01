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

type SettingsController struct {
	settingsService services.SettingsServiceInterface
	logger          *zap.Logger
}

func NewSettingsController(settingsService services.SettingsServiceInterface, logger *zap.Logger) *SettingsController {
	return &SettingsController{settingsService: settingsService, logger: logger}
}

func (c *SettingsController) Get(ctx echo.Context) error {
	res, err := c.settingsService.Public(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Настройки получены", http.StatusOK)
}

func (c *SettingsController) Update(ctx echo.Context) error {
	var payload dto.UpdateSettingsDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	res, err := c.settingsService.Update(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("Не удалось обновить настройки", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Настройки обновлены", http.StatusOK)
}
