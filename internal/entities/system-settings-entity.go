package entities

import "time"

// SystemSettings - единственная строка system_settings с настройками каналов доставки.
type SystemSettings struct {
	AppName             string    `json:"app_name" db:"app_name"`
	TelegramEnabled     bool      `json:"telegram_enabled" db:"telegram_enabled"`
	TelegramBotToken    string    `json:"telegram_bot_token" db:"telegram_bot_token"`
	TelegramBotUsername string    `json:"telegram_bot_username" db:"telegram_bot_username"`
	PushEnabled         bool      `json:"push_enabled" db:"push_enabled"`
	VapidPublicKey      string    `json:"vapid_public_key" db:"vapid_public_key"`
	VapidPrivateKey     string    `json:"vapid_private_key" db:"vapid_private_key"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// TelegramReady - бот включен и для него задан токен.
func (s *SystemSettings) TelegramReady() bool {
	return s != nil && s.TelegramEnabled && s.TelegramBotToken != ""
}

// PushReady - push включен и VAPID-ключи заданы.
func (s *SystemSettings) PushReady() bool {
	return s != nil && s.PushEnabled && s.VapidPublicKey != "" && s.VapidPrivateKey != ""
}
