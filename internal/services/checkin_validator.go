package services

import (
	"math"
	"time"

	"taskly/pkg/constants"
	"taskly/pkg/geo"
)

// PriorCheckIn - последний check-in представителя в окне невозможного перемещения.
type PriorCheckIn struct {
	Location geo.Point
	At       time.Time
}

type CheckInVerdict struct {
	DistanceMeters   int
	IsValid          bool
	ImpossibleTravel bool
}

// ValidateCheckIn проверяет заявленные координаты визита.
//
// Расстояние до клиента считается в метрах и округляется до целого; без координат
// клиента оно равно 0 и правило радиуса выполнено. Предыдущий check-in (вызывающий
// передает только самый свежий за последние 5 минут) дальше 50 км означает
// невозможное перемещение. Цепочки из нескольких check-in не анализируются.
func ValidateCheckIn(claimed geo.Point, reference *geo.Point, prior *PriorCheckIn) CheckInVerdict {
	verdict := CheckInVerdict{IsValid: true}

	if reference != nil {
		verdict.DistanceMeters = int(math.Round(geo.DistanceMeters(*reference, claimed)))
		verdict.IsValid = verdict.DistanceMeters <= constants.CheckInRadiusMeters
	}

	if prior != nil && geo.DistanceMeters(prior.Location, claimed) > constants.ImpossibleTravelThresholdM {
		verdict.ImpossibleTravel = true
		verdict.IsValid = false
	}

	return verdict
}
