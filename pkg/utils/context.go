package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"taskly/pkg/contextkeys"
	apperrors "taskly/pkg/errors"
)

func ContextWithTimeout(ctx echo.Context, timeout int) (context.Context, context.CancelFunc) {
	reqCtx := ctx.Request().Context()
	return context.WithTimeout(reqCtx, time.Duration(timeout)*time.Second)
}

func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok || userID == 0 {
		return 0, apperrors.ErrUserIDNotFoundInContext
	}
	return userID, nil
}

func GetRoleFromCtx(ctx context.Context) (string, error) {
	role, ok := ctx.Value(contextkeys.UserRoleKey).(string)
	if !ok {
		return "", apperrors.ErrUserIDNotFoundInContext
	}
	return role, nil
}

// WithUser кладет в контекст идентификатор и роль пользователя.
func WithUser(ctx context.Context, userID uint64, role string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, userID)
	return context.WithValue(ctx, contextkeys.UserRoleKey, role)
}
