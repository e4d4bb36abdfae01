package entities

import (
	"github.com/aarondl/null/v8"

	"taskly/pkg/types"
)

type Notification struct {
	ID          uint64      `json:"id" db:"id"`
	RecipientID uint64      `json:"recipient_id" db:"recipient_id"`
	Type        string      `json:"type" db:"type"`
	Title       string      `json:"title" db:"title"`
	Message     string      `json:"message" db:"message"`
	IsRead      bool        `json:"is_read" db:"is_read"`
	Link        null.String `json:"link" db:"link"`
	Metadata    null.JSON   `json:"metadata" db:"metadata"`

	types.BaseEntity
}
