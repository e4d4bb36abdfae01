package dto

import (
	"taskly/internal/entities"
	"taskly/pkg/geo"
)

type CheckInDTO struct {
	ClientID uint64     `json:"clientId" validate:"required"`
	Location *geo.Point `json:"location" validate:"required"`
	Photo    string     `json:"photo" validate:"omitempty,max=2048"`
	Notes    string     `json:"notes" validate:"omitempty,max=2000"`
}

type CheckInResponseDTO struct {
	Visit            *entities.Visit `json:"visit"`
	Distance         int             `json:"distance"`
	IsValid          bool            `json:"isValid"`
	ImpossibleTravel bool            `json:"impossibleTravel"`
	Message          string          `json:"message"`
}

type CheckOutDTO struct {
	VisitID  uint64     `json:"visitId" validate:"required"`
	Location *geo.Point `json:"location"`
}

type CheckOutResponseDTO struct {
	Visit   *entities.Visit `json:"visit"`
	Message string          `json:"message"`
}

type RouteQueryDTO struct {
	RepresentativeID uint64 `query:"rep"`
	Date             string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

type RouteRepresentativeDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type RoutePointDTO struct {
	Order                int        `json:"order"`
	VisitID              uint64     `json:"visitId"`
	ClientID             uint64     `json:"clientId"`
	ClientName           string     `json:"clientName"`
	Status               string     `json:"status"`
	CheckInTime          string     `json:"checkInTime"`
	CheckOutTime         *string    `json:"checkOutTime,omitempty"`
	CheckInLocation      geo.Point  `json:"checkInLocation"`
	CheckOutLocation     *geo.Point `json:"checkOutLocation,omitempty"`
	Distance             int        `json:"distance"`
	IsValid              bool       `json:"isValid"`
	Notes                *string    `json:"notes,omitempty"`
	DurationMinutes      *int       `json:"durationMinutes,omitempty"`
	TravelFromPreviousKm *float64   `json:"travelFromPreviousKm,omitempty"`
}

type RouteSummaryDTO struct {
	TotalVisits          int     `json:"totalVisits"`
	ValidVisits          int     `json:"validVisits"`
	InvalidVisits        int     `json:"invalidVisits"`
	TotalDurationMinutes int     `json:"totalDurationMinutes"`
	TotalDistanceKm      float64 `json:"totalDistanceKm"`
}

type DailyRouteDTO struct {
	Representative RouteRepresentativeDTO `json:"representative"`
	Date           string                 `json:"date"`
	Route          []RoutePointDTO        `json:"route"`
	Summary        RouteSummaryDTO        `json:"summary"`
}
