package domain

// ClusterStats carries the raw-feature means of a trained cluster's members.
type ClusterStats struct {
	Size              int     `json:"size"`
	AvgTotalEmissions float64 `json:"avg_total_emissions"`
	AvgDailyMiles     float64 `json:"avg_daily_miles"`
	AvgMeatMeals      float64 `json:"avg_meat_meals"`
	AvgElectricity    float64 `json:"avg_electricity"`
	AvgFlights        float64 `json:"avg_flights"`
}

// ClusterDescription is the human-readable summary derived for each cluster at
// training time. Archetype names, not cluster ids, are the stable identifier
// across retrains: ids are whatever the clustering run happened to assign.
type ClusterDescription struct {
	Archetype      string       `json:"archetype"`
	Stats          ClusterStats `json:"stats"`
	TransportRatio float64      `json:"transport_ratio"`
	FoodRatio      float64      `json:"food_ratio"`
	EnergyRatio    float64      `json:"energy_ratio"`
	FlightRatio    float64      `json:"flight_ratio"`
	DominantSource string       `json:"dominant_source"`
	DominantRatio  float64      `json:"dominant_ratio"`
}

// ArchetypeUnknown is substituted when no trained model is available.
const ArchetypeUnknown = "Unknown"

// Assignment is the classification result for a single feature vector.
type Assignment struct {
	ClusterID   int
	Archetype   string
	Description ClusterDescription
}

// Priority ranks a recommendation. Fixed per rule, never computed.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a single quantified savings suggestion. Created fresh per
// request and never persisted.
type Recommendation struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	EstimatedSavingsKg float64  `json:"estimated_savings_kg"`
	Category           string   `json:"category"`
	Priority           Priority `json:"priority"`
}
