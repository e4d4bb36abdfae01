package telegram

import "strings"

// Схема обновлений зафиксирована Bot API: update_id, message.chat.id, message.text.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// ParseStartCommand разбирает "/start" и "/start <payload>".
// Возвращает ok=false, если сообщение не является командой /start.
func ParseStartCommand(text string) (payload string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "/start" {
		return "", true
	}
	// Telegram может прислать "/start@BotName <payload>"
	command, rest, _ := strings.Cut(text, " ")
	if command != "/start" && !strings.HasPrefix(command, "/start@") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
