package customvalidator

import (
	"net/url"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var botUsernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,30}[Bb][Oo][Tt]$`)

// RegisterCustomValidations регистрирует правила предметной области в экземпляре валидатора.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("bot_username", isBotUsername); err != nil {
		return err
	}
	if err := v.RegisterValidation("push_endpoint", isPushEndpoint); err != nil {
		return err
	}
	return nil
}

// Имя бота Telegram: 5-32 символа, латиница/цифры/_, оканчивается на "bot".
func isBotUsername(fl validator.FieldLevel) bool {
	return botUsernameRe.MatchString(fl.Field().String())
}

// Адрес push-сервиса браузера всегда абсолютный https.
func isPushEndpoint(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
