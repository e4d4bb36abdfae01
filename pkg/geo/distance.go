// Файл: pkg/geo/distance.go
package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters используется для проверки чек-инов (метры).
	EarthRadiusMeters = 6371000.0
	// EarthRadiusKm используется для восстановления маршрута за день (километры).
	EarthRadiusKm = 6371.0
)

// Point - координата в порядке хранения [долгота, широта].
type Point struct {
	Lng float64
	Lat float64
}

func NewPoint(lng, lat float64) Point {
	return Point{Lng: lng, Lat: lat}
}

// Valid проверяет, что координаты находятся в допустимых границах.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lng) || math.IsNaN(p.Lat) {
		return false
	}
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lng, p.Lat})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("координаты должны быть массивом [lng, lat]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("координаты должны содержать ровно 2 значения, получено %d", len(pair))
	}
	p.Lng, p.Lat = pair[0], pair[1]
	return nil
}

// DistanceMeters - расстояние по формуле гаверсинусов в метрах (радиус 6 371 000 м).
func DistanceMeters(a, b Point) float64 {
	return haversine(a, b, EarthRadiusMeters)
}

// DistanceKm - то же самое в километрах (радиус 6371 км).
func DistanceKm(a, b Point) float64 {
	return haversine(a, b, EarthRadiusKm)
}

func haversine(a, b Point, radius float64) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	// Погрешность округления может дать h чуть больше 1
	h = math.Min(1, math.Max(0, h))

	return radius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
