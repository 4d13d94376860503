// Package recommend turns a user's feature vector and archetype into
// quantified savings recommendations. A fixed rule set produces the numbers;
// an optional language-model pass may rewrite the wording, never the numbers.
package recommend

import (
	"fmt"
	"strings"

	"example.com/ecotrack/internal/domain"
)

// Per-unit savings factors shared with the clustering training targets.
const (
	kgPerMileSaved = 0.411
	kgPerMeatMeal  = 3.5
	kgPerKWhSaved  = 0.5
)

// Rules evaluates the recommendation rule set against the feature vector.
// Blocks are independent: a user can collect several recommendations. The
// archetype opens a block for users whose cluster exhibits the behavior even
// when their own absolute numbers sit below the threshold, and vice versa.
func Rules(v domain.FeatureVector, archetype string) []domain.Recommendation {
	var recommendations []domain.Recommendation

	if strings.Contains(archetype, "Transportation") || v.TransportEmissionsKg > 2000 {
		if v.DailyMilesDriven > 30 {
			excess := v.DailyMilesDriven - 25
			recommendations = append(recommendations, domain.Recommendation{
				Title:              "Reduce Daily Driving",
				Description:        fmt.Sprintf("Reduce driving by %.1f miles/week", excess),
				EstimatedSavingsKg: excess * kgPerMileSaved * 7,
				Category:           "transportation",
				Priority:           domain.PriorityHigh,
			})
		}
	}

	if strings.Contains(archetype, "Food") || v.FoodEmissionsKg > 1500 {
		if v.MeatMealsPerWeek > 7 {
			excess := v.MeatMealsPerWeek - 5
			recommendations = append(recommendations, domain.Recommendation{
				Title:              "Reduce Meat Consumption",
				Description:        fmt.Sprintf("Replace %.0f meat meals per week with vegetarian options", excess),
				EstimatedSavingsKg: excess * kgPerMeatMeal * 52,
				Category:           "food",
				Priority:           domain.PriorityHigh,
			})
		}
	}

	if strings.Contains(archetype, "Energy") || v.EnergyEmissionsKg > 3000 {
		if v.ElectricityKWhPerDay > 30 {
			excess := v.ElectricityKWhPerDay - 25
			recommendations = append(recommendations, domain.Recommendation{
				Title:              "Reduce Energy Consumption",
				Description:        fmt.Sprintf("Reduce daily electricity usage by %.1f kWh", excess),
				EstimatedSavingsKg: excess * kgPerKWhSaved * 365,
				Category:           "energy",
				Priority:           domain.PriorityMedium,
			})
		}
	}

	if strings.Contains(archetype, "Low") {
		recommendations = append(recommendations, domain.Recommendation{
			Title:              "Maintain Low Emissions",
			Description:        "You're doing great! Continue your sustainable habits.",
			EstimatedSavingsKg: 0,
			Category:           "general",
			Priority:           domain.PriorityLow,
		})
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, domain.Recommendation{
			Title:              "Track Your Progress",
			Description:        "Continue logging activities to get personalized recommendations",
			EstimatedSavingsKg: 0,
			Category:           "general",
			Priority:           domain.PriorityLow,
		})
	}

	return recommendations
}

// TotalSavings sums the estimated savings across recommendations.
func TotalSavings(recommendations []domain.Recommendation) float64 {
	total := 0.0
	for _, r := range recommendations {
		total += r.EstimatedSavingsKg
	}
	return total
}
