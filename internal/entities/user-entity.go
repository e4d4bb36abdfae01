// Файл: internal/entities/user-entity.go
package entities

import (
	"github.com/aarondl/null/v8"

	"taskly/pkg/types"
)

type User struct {
	ID       uint64 `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Role     string `json:"role" db:"role"`
	IsActive bool   `json:"is_active" db:"is_active"`

	// Пусто, пока пользователь не привязал Telegram.
	TelegramChatID null.Int64 `json:"telegram_chat_id" db:"telegram_chat_id"`

	types.BaseEntity
}

func (u *User) TelegramLinked() bool {
	return u.TelegramChatID.Valid && u.TelegramChatID.Int64 != 0
}
