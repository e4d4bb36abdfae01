package dto

// SettingsResponseDTO - настройки каналов доставки без секретов.
type SettingsResponseDTO struct {
	AppName             string `json:"appName"`
	TelegramEnabled     bool   `json:"telegramEnabled"`
	TelegramConfigured  bool   `json:"telegramConfigured"`
	TelegramBotUsername string `json:"telegramBotUsername"`
	PushEnabled         bool   `json:"pushEnabled"`
	PushConfigured      bool   `json:"pushConfigured"`
	VapidPublicKey      string `json:"vapidPublicKey"`
}

// UpdateSettingsDTO - частичное обновление; nil означает "не менять".
type UpdateSettingsDTO struct {
	AppName             *string `json:"appName" validate:"omitempty,min=1,max=255"`
	TelegramEnabled     *bool   `json:"telegramEnabled"`
	TelegramBotToken    *string `json:"telegramBotToken"`
	TelegramBotUsername *string `json:"telegramBotUsername" validate:"omitempty,bot_username"`
	PushEnabled         *bool   `json:"pushEnabled"`
	VapidPublicKey      *string `json:"vapidPublicKey"`
	VapidPrivateKey     *string `json:"vapidPrivateKey"`
}
