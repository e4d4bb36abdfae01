package dto

import (
	"encoding/json"
	"time"

	"taskly/internal/entities"
	"taskly/pkg/constants"
	"taskly/pkg/types"
)

// NotificationRequest - входные данные диспетчера. Не хранится как отдельная сущность.
type NotificationRequest struct {
	RecipientID uint64
	Type        constants.NotificationType
	Title       string
	Message     string
	Link        string
	Metadata    map[string]interface{}
}

// NotificationTemplate - общая часть массовой рассылки (упоминания, комментарии).
type NotificationTemplate struct {
	Type     constants.NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]interface{}
}

// SendNotificationDTO - ручная отправка системного уведомления администратором.
type SendNotificationDTO struct {
	RecipientID uint64 `json:"recipient_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Message     string `json:"message" validate:"required"`
	Link        string `json:"link" validate:"omitempty,max=2048"`
}

type NotificationResponseDTO struct {
	ID        uint64          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	IsRead    bool            `json:"is_read"`
	Link      *string         `json:"link,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type NotificationListDTO struct {
	Items      []NotificationResponseDTO `json:"items"`
	Pagination types.Pagination          `json:"pagination"`
}

type UnreadCountDTO struct {
	Count uint64 `json:"count"`
}

type MarkAllReadDTO struct {
	Updated int64 `json:"updated"`
}

func NotificationToResponse(n *entities.Notification) NotificationResponseDTO {
	res := NotificationResponseDTO{
		ID:      n.ID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		IsRead:  n.IsRead,
	}
	if n.Link.Valid {
		link := n.Link.String
		res.Link = &link
	}
	if n.Metadata.Valid {
		res.Metadata = json.RawMessage(n.Metadata.JSON)
	}
	if n.CreatedAt != nil {
		res.CreatedAt = n.CreatedAt.Format(time.RFC3339)
	}
	return res
}
