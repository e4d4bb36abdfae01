package dto

type TelegramLinkDTO struct {
	Linked bool   `json:"linked"`
	ChatID *int64 `json:"chatId,omitempty"`
	URL    string `json:"url,omitempty"`
}

type TelegramStatusDTO struct {
	Linked bool `json:"linked"`
}

// PollResultDTO - итог одного раунда опроса getUpdates.
type PollResultDTO struct {
	Skipped   bool  `json:"skipped"`
	Processed int   `json:"processed"`
	Watermark int64 `json:"watermark"`
}
