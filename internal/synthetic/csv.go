package synthetic

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"user_id",
	"daily_miles_driven",
	"meat_meals_per_week",
	"vegetarian_meals_per_week",
	"electricity_kwh_per_day",
	"natural_gas_therms_per_month",
	"flights_per_year",
	"total_annual_emissions_kg",
	"transport_emissions_kg",
	"food_emissions_kg",
	"energy_emissions_kg",
	"flight_emissions_kg",
}

// WriteCSV streams the population as CSV with a header row.
func WriteCSV(w io.Writer, profiles []UserProfile) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range profiles {
		record := []string{
			p.UserID,
			formatFloat(p.DailyMilesDriven),
			strconv.Itoa(p.MeatMealsPerWeek),
			strconv.Itoa(p.VegetarianMealsPerWeek),
			formatFloat(p.ElectricityKWhPerDay),
			formatFloat(p.NaturalGasThermsPerMonth),
			strconv.Itoa(p.FlightsPerYear),
			formatFloat(p.TotalEmissionsKg),
			formatFloat(p.TransportEmissionsKg),
			formatFloat(p.FoodEmissionsKg),
			formatFloat(p.EnergyEmissionsKg),
			formatFloat(p.FlightEmissionsKg),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row for %s: %w", p.UserID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a population written by WriteCSV. The header must match the
// writer's column set exactly.
func ReadCSV(r io.Reader) ([]UserProfile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, column := range header {
		if column != csvHeader[i] {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", column, i, csvHeader[i])
		}
	}

	var profiles []UserProfile
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		profile := UserProfile{UserID: record[0]}
		fields := []struct {
			value  string
			target interface{}
		}{
			{record[1], &profile.DailyMilesDriven},
			{record[2], &profile.MeatMealsPerWeek},
			{record[3], &profile.VegetarianMealsPerWeek},
			{record[4], &profile.ElectricityKWhPerDay},
			{record[5], &profile.NaturalGasThermsPerMonth},
			{record[6], &profile.FlightsPerYear},
			{record[7], &profile.TotalEmissionsKg},
			{record[8], &profile.TransportEmissionsKg},
			{record[9], &profile.FoodEmissionsKg},
			{record[10], &profile.EnergyEmissionsKg},
			{record[11], &profile.FlightEmissionsKg},
		}
		for i, field := range fields {
			if err := parseField(field.value, field.target); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", row, csvHeader[i+1], err)
			}
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func parseField(value string, target interface{}) error {
	switch t := target.(type) {
	case *float64:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*t = parsed
	case *int:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*t = parsed
	default:
		return fmt.Errorf("unsupported field type %T", target)
	}
	return nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
