package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/services"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/utils"
)

type NotificationController struct {
	notificationService services.NotificationServiceInterface
	logger              *zap.Logger
}

func NewNotificationController(notificationService services.NotificationServiceInterface, logger *zap.Logger) *NotificationController {
	return &NotificationController{notificationService: notificationService, logger: logger}
}

func parseIDParam(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID", err)
	}
	return id, nil
}

func (c *NotificationController) List(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	limit, _, page := utils.ParsePaginationParams(ctx.QueryParams())
	res, err := c.notificationService.ListForUser(reqCtx, userID, limit, page)
	if err != nil {
		c.logger.Error("Не удалось получить уведомления", zap.Uint64("userID", userID), zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Список уведомлений успешно получен", http.StatusOK)
}

func (c *NotificationController) UnreadCount(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	count, err := c.notificationService.CountUnread(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.UnreadCountDTO{Count: count}, "Количество непрочитанных", http.StatusOK)
}

func (c *NotificationController) MarkRead(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := parseIDParam(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.notificationService.MarkRead(reqCtx, id, userID); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Уведомление прочитано", http.StatusOK)
}

func (c *NotificationController) MarkAllRead(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	updated, err := c.notificationService.MarkAllRead(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.MarkAllReadDTO{Updated: updated}, "Все уведомления прочитаны", http.StatusOK)
}

func (c *NotificationController) Delete(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if err := c.notificationService.Delete(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "Уведомление удалено", http.StatusOK)
}

// Send - ручная отправка системного уведомления через все каналы.
func (c *NotificationController) Send(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.SendNotificationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	n, err := c.notificationService.Notify(reqCtx, dto.NotificationRequest{
		RecipientID: payload.RecipientID,
		Type:        constants.NotificationSystem,
		Title:       payload.Title,
		Message:     payload.Message,
		Link:        payload.Link,
	})
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.NotificationToResponse(n), "Уведомление отправлено", http.StatusCreated)
}
