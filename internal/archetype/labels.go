package archetype

import (
	"example.com/ecotrack/internal/domain"
)

// TrainingRow pairs the clustered feature vector with the emission fields that
// are not clustered on but are required for cluster statistics and ratios.
type TrainingRow struct {
	Features          domain.FeatureVector
	FlightEmissionsKg float64
	TotalEmissionsKg  float64
}

// emissionSources fixes the dominant-source tie-break order.
var emissionSources = []string{"transport", "food", "energy", "flight"}

// describeClusters computes per-cluster raw-feature means, emission-source
// ratios, and the archetype label for every cluster in the partition.
//
// Ratios are mean(part)/mean(total) across members, not the mean of per-user
// ratios: the ratio of means is less sensitive to outlier users and the label
// cascade thresholds were tuned against it.
func describeClusters(rows []TrainingRow, labels []int, clusters int) map[int]domain.ClusterDescription {
	type accumulator struct {
		size        int
		miles       float64
		meatMeals   float64
		electricity float64
		flights     float64
		transport   float64
		food        float64
		energy      float64
		flightKg    float64
		total       float64
	}

	acc := make([]accumulator, clusters)
	for i, row := range rows {
		a := &acc[labels[i]]
		a.size++
		a.miles += row.Features.DailyMilesDriven
		a.meatMeals += row.Features.MeatMealsPerWeek
		a.electricity += row.Features.ElectricityKWhPerDay
		a.flights += row.Features.FlightsPerYear
		a.transport += row.Features.TransportEmissionsKg
		a.food += row.Features.FoodEmissionsKg
		a.energy += row.Features.EnergyEmissionsKg
		a.flightKg += row.FlightEmissionsKg
		a.total += row.TotalEmissionsKg
	}

	descriptions := make(map[int]domain.ClusterDescription, clusters)
	for c := 0; c < clusters; c++ {
		a := acc[c]
		n := float64(a.size)
		if a.size == 0 {
			n = 1
		}

		stats := domain.ClusterStats{
			Size:              a.size,
			AvgTotalEmissions: a.total / n,
			AvgDailyMiles:     a.miles / n,
			AvgMeatMeals:      a.meatMeals / n,
			AvgElectricity:    a.electricity / n,
			AvgFlights:        a.flights / n,
		}

		ratios := map[string]float64{}
		meanTotal := a.total / n
		if meanTotal > 0 {
			ratios["transport"] = a.transport / n / meanTotal
			ratios["food"] = a.food / n / meanTotal
			ratios["energy"] = a.energy / n / meanTotal
			ratios["flight"] = a.flightKg / n / meanTotal
		} else {
			for _, source := range emissionSources {
				ratios[source] = 0
			}
		}

		dominant, dominantRatio := dominantSource(ratios)

		descriptions[c] = domain.ClusterDescription{
			Archetype:      archetypeLabel(stats, ratios, dominant),
			Stats:          stats,
			TransportRatio: ratios["transport"],
			FoodRatio:      ratios["food"],
			EnergyRatio:    ratios["energy"],
			FlightRatio:    ratios["flight"],
			DominantSource: dominant,
			DominantRatio:  dominantRatio,
		}
	}
	return descriptions
}

// dominantSource returns the highest-ratio source, ties resolved by the fixed
// enumeration order transport, food, energy, flight.
func dominantSource(ratios map[string]float64) (string, float64) {
	dominant := emissionSources[0]
	best := ratios[dominant]
	for _, source := range emissionSources[1:] {
		if ratios[source] > best {
			dominant = source
			best = ratios[source]
		}
	}
	return dominant, best
}

// archetypeLabel applies the fixed labeling cascade top to bottom; the first
// matching branch wins.
func archetypeLabel(stats domain.ClusterStats, ratios map[string]float64, dominant string) string {
	switch {
	case stats.AvgTotalEmissions < 6000:
		return "Low Total Emissions"

	case dominant == "transport" && ratios["transport"] > 0.30 && ratios["transport"] > 1.1*ratios["energy"]:
		return "High Transportation"

	case dominant == "food" && ratios["food"] > 0.20:
		return "High Food Emissions"

	case dominant == "energy":
		switch {
		case stats.AvgElectricity > 100:
			return "Very High Energy Usage"
		case stats.AvgMeatMeals > 8:
			return "High Energy & Food Usage"
		case stats.AvgTotalEmissions < 12000:
			return "Moderate Energy Usage"
		default:
			return "High Energy Usage"
		}

	case dominant == "flight" && ratios["flight"] > 0.15:
		return "High Flight Emissions"

	default:
		nonFlightMax := ratios["transport"]
		if ratios["food"] > nonFlightMax {
			nonFlightMax = ratios["food"]
		}
		if ratios["energy"] > nonFlightMax {
			nonFlightMax = ratios["energy"]
		}
		if nonFlightMax < 0.50 {
			return "Balanced Emissions"
		}
		return "High Energy Usage"
	}
}
