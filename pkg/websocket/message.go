package websocket

import "time"

// Имена событий, которые сервер отправляет клиентам.
const (
	EventUserOnline   = "user:online"
	EventUserOffline  = "user:offline"
	EventUsersOnline  = "users:online"
	EventNotification = "notification"
)

// Envelope - это "конверт", в котором мы отправляем наши сообщения.
// Он содержит тип сообщения, что позволяет фронтенду понять, что делать.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// AuthFrame - первое сообщение клиента после открытия канала.
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NotificationPayload - уведомление для "колокольчика" на фронтенде.
type NotificationPayload struct {
	ID      uint64 `json:"id,omitempty"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}
