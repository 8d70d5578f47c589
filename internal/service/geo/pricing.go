package geo

import (
	"math"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type tariff struct {
	base  float64
	perKm float64
}

var (
	defaultTariff = tariff{base: 15, perKm: 5}

	tariffs = map[types.VehicleClass]tariff{
		types.VehicleTuktuk:        {base: 10, perKm: 4},
		types.VehicleMotorDelivery: {base: 12, perKm: 4},
		types.VehicleCar:           {base: 18, perKm: 6},
		types.VehicleMicrobus:      {base: 25, perKm: 8},
		types.VehicleTamanya:       {base: 22, perKm: 7},
		types.VehicleCaboot:        {base: 30, perKm: 10},
	}
)

// Price is the suggested fare for a distance, rounded to a whole unit.
func Price(class types.VehicleClass, distanceKm float64) float64 {
	t, ok := tariffs[class]
	if !ok {
		t = defaultTariff
	}
	return math.Round(t.base + t.perKm*distanceKm)
}
