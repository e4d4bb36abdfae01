package entities

import (
	"time"

	"github.com/aarondl/null/v8"

	"taskly/pkg/geo"
	"taskly/pkg/types"
)

type Visit struct {
	ID               uint64 `json:"id" db:"id"`
	ClientID         uint64 `json:"client_id" db:"client_id"`
	RepresentativeID uint64 `json:"representative_id" db:"representative_id"`
	Status           string `json:"status" db:"status"`

	CheckInTime     time.Time   `json:"check_in_time" db:"check_in_time"`
	CheckInLocation geo.Point   `json:"check_in_location"`
	CheckInPhoto    null.String `json:"check_in_photo" db:"check_in_photo"`
	Distance        int         `json:"distance" db:"distance"`
	IsValid         bool        `json:"is_valid" db:"is_valid"`

	CheckOutTime     null.Time   `json:"check_out_time" db:"check_out_time"`
	CheckOutLocation *geo.Point  `json:"check_out_location,omitempty"`
	Notes            null.String `json:"notes" db:"notes"`

	// Заполняется только в выборках с JOIN на clients.
	ClientName string `json:"client_name,omitempty" db:"-"`

	types.BaseEntity
}
