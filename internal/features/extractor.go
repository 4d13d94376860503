// Package features maps raw activity history onto the fixed feature vector
// consumed by the archetype model. Training and inference must run through the
// same transform, so all rate and annualization constants live here.
package features

import (
	"strings"
	"time"

	"example.com/ecotrack/internal/domain"
)

// WindowDays is the trailing aggregation window.
const WindowDays = 30

// annualization scales a 30-day emission sum to a yearly figure.
const annualization = 365.0 / WindowDays

// Extract aggregates the records inside the trailing 30-day window ending at
// asOf into a feature vector. Records outside the window are ignored. An empty
// window yields the all-zero vector, which is a valid classification input.
func Extract(records []domain.ActivityRecord, asOf time.Time) (domain.FeatureVector, error) {
	windowStart := asOf.Add(-WindowDays * 24 * time.Hour)

	var (
		milesTotal     float64
		meatMeals      float64
		electricityKWh float64
		gasTherms      float64

		transportKg float64
		foodKg      float64
		energyKg    float64
	)

	for _, record := range records {
		if record.OccurredAt.Before(windowStart) || record.OccurredAt.After(asOf) {
			continue
		}

		unit := strings.ToLower(record.Unit)
		subtype := strings.ToLower(record.Subtype)

		switch record.Category {
		case domain.CategoryTransportation:
			transportKg += record.CO2eKg
			if unit == "miles" || unit == "km" {
				milesTotal += record.Amount
			}
		case domain.CategoryFood:
			foodKg += record.CO2eKg
			if strings.Contains(subtype, "meat") || strings.Contains(subtype, "beef") {
				meatMeals++
			}
		case domain.CategoryEnergy:
			energyKg += record.CO2eKg
			if unit == "kwh" || unit == "kilowatt-hour" {
				electricityKWh += record.Amount
			} else if strings.Contains(unit, "therm") {
				gasTherms += record.Amount
			}
		}
	}

	vector := domain.FeatureVector{
		DailyMilesDriven:         milesTotal / WindowDays,
		MeatMealsPerWeek:         meatMeals / WindowDays * 7,
		ElectricityKWhPerDay:     electricityKWh / WindowDays,
		NaturalGasThermsPerMonth: gasTherms / WindowDays * 30,
		// TODO: no ingestion path records flight activities, so this feature
		// is always zero from live data even though the model and the flight
		// rule branch expect it. Needs a flight subtype in the activity log.
		FlightsPerYear:       0,
		TransportEmissionsKg: transportKg * annualization,
		FoodEmissionsKg:      foodKg * annualization,
		EnergyEmissionsKg:    energyKg * annualization,
	}

	if err := vector.Validate(); err != nil {
		return domain.FeatureVector{}, err
	}
	return vector, nil
}
