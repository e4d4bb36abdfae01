package entities

import (
	"encoding/json"

	"taskly/pkg/types"
)

// PushSubscription - подписка браузера (PushSubscription.toJSON()) в исходном виде.
type PushSubscription struct {
	ID           uint64          `json:"id" db:"id"`
	UserID       uint64          `json:"user_id" db:"user_id"`
	Endpoint     string          `json:"endpoint" db:"endpoint"`
	Subscription json.RawMessage `json:"subscription" db:"subscription"`

	types.BaseEntity
}
