package domain

import (
	"fmt"
	"math"
)

// FeatureNames lists the feature vector fields in canonical order. The scaler
// and centroids are fit against this ordering, so training and inference must
// both go through Values / FeatureNames rather than enumerating fields ad hoc.
var FeatureNames = []string{
	"daily_miles_driven",
	"meat_meals_per_week",
	"electricity_kwh_per_day",
	"natural_gas_therms_per_month",
	"flights_per_year",
	"transport_emissions_kg",
	"food_emissions_kg",
	"energy_emissions_kg",
}

// FeatureVector summarizes a user's recent behavior as the fixed numeric input
// consumed by the archetype model. Emission fields are annualized.
type FeatureVector struct {
	DailyMilesDriven         float64 `json:"daily_miles_driven"`
	MeatMealsPerWeek         float64 `json:"meat_meals_per_week"`
	ElectricityKWhPerDay     float64 `json:"electricity_kwh_per_day"`
	NaturalGasThermsPerMonth float64 `json:"natural_gas_therms_per_month"`
	FlightsPerYear           float64 `json:"flights_per_year"`
	TransportEmissionsKg     float64 `json:"transport_emissions_kg"`
	FoodEmissionsKg          float64 `json:"food_emissions_kg"`
	EnergyEmissionsKg        float64 `json:"energy_emissions_kg"`
}

// Values returns the features as a slice in canonical order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.DailyMilesDriven,
		v.MeatMealsPerWeek,
		v.ElectricityKWhPerDay,
		v.NaturalGasThermsPerMonth,
		v.FlightsPerYear,
		v.TransportEmissionsKg,
		v.FoodEmissionsKg,
		v.EnergyEmissionsKg,
	}
}

// AnnualTotalKg sums the annualized per-category emissions.
func (v FeatureVector) AnnualTotalKg() float64 {
	return v.TransportEmissionsKg + v.FoodEmissionsKg + v.EnergyEmissionsKg
}

// Validate rejects vectors the scaler cannot consume. Every field must be a
// finite, non-negative number; violations are never silently coerced.
func (v FeatureVector) Validate() error {
	for i, value := range v.Values() {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidFeatureVector, FeatureNames[i])
		}
		if value < 0 {
			return fmt.Errorf("%w: %s is negative (%g)", ErrInvalidFeatureVector, FeatureNames[i], value)
		}
	}
	return nil
}
