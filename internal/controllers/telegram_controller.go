package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/services"
	"taskly/pkg/telegram"
	"taskly/pkg/utils"
)

const webhookHandleTimeout = 15 * time.Second

type TelegramController struct {
	linkService services.TelegramLinkServiceInterface
	logger      *zap.Logger
}

func NewTelegramController(linkService services.TelegramLinkServiceInterface, logger *zap.Logger) *TelegramController {
	return &TelegramController{linkService: linkService, logger: logger}
}

func (c *TelegramController) Link(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	res, err := c.linkService.LinkURL(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Ссылка для привязки Telegram", http.StatusOK)
}

func (c *TelegramController) Status(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	res, err := c.linkService.Status(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Статус привязки Telegram", http.StatusOK)
}

func (c *TelegramController) Unlink(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.linkService.Unlink(reqCtx, userID); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Telegram отвязан", http.StatusOK)
}

// HandleWebhook всегда отвечает 200: иначе Telegram будет повторять то же обновление.
func (c *TelegramController) HandleWebhook(ctx echo.Context) error {
	var update telegram.Update
	if err := ctx.Bind(&update); err != nil {
		c.logger.Error("Не удалось распарсить обновление от Telegram", zap.Error(err))
		return ctx.NoContent(http.StatusBadRequest)
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), webhookHandleTimeout)
	defer cancel()

	handled, err := c.linkService.HandleWebhookUpdate(reqCtx, update)
	if err != nil {
		c.logger.Error("Ошибка обработки вебхука Telegram", zap.Int64("updateID", update.UpdateID), zap.Error(err))
	} else if handled {
		c.logger.Debug("Обновление Telegram обработано", zap.Int64("updateID", update.UpdateID))
	}
	return ctx.NoContent(http.StatusOK)
}
