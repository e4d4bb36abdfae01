package entities

import (
	"github.com/aarondl/null/v8"

	"taskly/pkg/geo"
	"taskly/pkg/types"
)

type Client struct {
	ID          uint64       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	CompanyName null.String  `json:"company_name" db:"company_name"`
	Lng         null.Float64 `json:"lng" db:"lng"`
	Lat         null.Float64 `json:"lat" db:"lat"`

	types.BaseEntity
}

// Location возвращает координаты клиента или nil, если они не заданы.
func (c *Client) Location() *geo.Point {
	if !c.Lng.Valid || !c.Lat.Valid {
		return nil
	}
	p := geo.NewPoint(c.Lng.Float64, c.Lat.Float64)
	return &p
}
