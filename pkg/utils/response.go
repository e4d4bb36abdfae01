package utils

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "taskly/pkg/errors"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

// errorStatuses - соответствие сентинел-ошибок HTTP-кодам.
var errorStatuses = map[error]int{
	apperrors.ErrNotFound:                http.StatusNotFound,
	apperrors.ErrBadRequest:              http.StatusBadRequest,
	apperrors.ErrUnauthorized:            http.StatusUnauthorized,
	apperrors.ErrEmptyAuthHeader:         http.StatusUnauthorized,
	apperrors.ErrInvalidAuthHeader:       http.StatusUnauthorized,
	apperrors.ErrInvalidToken:            http.StatusUnauthorized,
	apperrors.ErrInvalidSigningMethod:    http.StatusUnauthorized,
	apperrors.ErrTokenExpired:            http.StatusUnauthorized,
	apperrors.ErrTokenNotYetValid:        http.StatusUnauthorized,
	apperrors.ErrTokenIsNotAccess:        http.StatusUnauthorized,
	apperrors.ErrUserIDNotFoundInContext: http.StatusUnauthorized,
	apperrors.ErrForbidden:               http.StatusForbidden,
	apperrors.ErrTelegramNotConfigured:   http.StatusServiceUnavailable,
	apperrors.ErrPushNotConfigured:       http.StatusServiceUnavailable,
	apperrors.ErrInternalServer:          http.StatusInternalServerError,
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	var response *HttpResponse = &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	}
	return ctx.JSON(
		code,
		response,
	)
}

func ErrorResponse(ctx echo.Context, err error) error {
	code, message := StatusFromError(err)

	var response *HttpResponse = &HttpResponse{
		Status:  false,
		Body:    struct{}{},
		Message: message,
	}

	return ctx.JSON(
		code,
		response,
	)
}

// StatusFromError подбирает HTTP-код и текст ответа для ошибки.
// Неизвестные ошибки не раскрываются клиенту.
func StatusFromError(err error) (int, string) {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code, httpErr.Message
	}

	var inputErr *apperrors.InvalidInputError
	if errors.As(err, &inputErr) {
		return http.StatusBadRequest, inputErr.Message
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, validationErrs.Error()
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if msg, ok := echoErr.Message.(string); ok {
			return echoErr.Code, msg
		}
		return echoErr.Code, http.StatusText(echoErr.Code)
	}

	for sentinel, statusCode := range errorStatuses {
		if errors.Is(err, sentinel) {
			return statusCode, sentinel.Error()
		}
	}

	return http.StatusInternalServerError, apperrors.ErrInternalServer.Error()
}
