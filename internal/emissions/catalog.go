// Package emissions converts logged activity amounts into kilograms of CO2e.
//
// Estimates come from either the Climatiq API or a built-in factor catalog.
// The catalog is always the safety net: any activity the API cannot price
// still gets a deterministic local estimate.
package emissions

import (
	"sort"
	"strings"
)

// DefaultFactorKg applies when no catalog entry matches the activity.
const DefaultFactorKg = 1.0

// Factor is one entry in the local emission factor catalog.
type Factor struct {
	Category  string  `json:"category"`
	Subtype   string  `json:"subtype"`
	Unit      string  `json:"unit"`
	KgPerUnit float64 `json:"kg_per_unit"`
}

// Catalog is an in-memory emission factor table keyed by activity triple.
type Catalog struct {
	factors []Factor
	index   map[string]float64
}

func factorKey(category, subtype, unit string) string {
	return strings.ToLower(category + "/" + subtype + "/" + unit)
}

// NewCatalog builds a catalog from the given factors. Later duplicates of the
// same triple win.
func NewCatalog(factors []Factor) *Catalog {
	c := &Catalog{
		factors: make([]Factor, 0, len(factors)),
		index:   make(map[string]float64, len(factors)),
	}
	for _, f := range factors {
		key := factorKey(f.Category, f.Subtype, f.Unit)
		if _, exists := c.index[key]; !exists {
			c.factors = append(c.factors, f)
		} else {
			for i := range c.factors {
				if factorKey(c.factors[i].Category, c.factors[i].Subtype, c.factors[i].Unit) == key {
					c.factors[i] = f
					break
				}
			}
		}
		c.index[key] = f.KgPerUnit
	}
	return c
}

// DefaultCatalog returns the built-in factor set.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Factor{
		{Category: "transportation", Subtype: "car", Unit: "miles", KgPerUnit: 0.411},
		{Category: "transportation", Subtype: "car", Unit: "km", KgPerUnit: 0.255},
		{Category: "food", Subtype: "beef", Unit: "kg", KgPerUnit: 27.0},
		{Category: "food", Subtype: "beef", Unit: "lbs", KgPerUnit: 12.25},
		{Category: "food", Subtype: "chicken", Unit: "kg", KgPerUnit: 6.9},
		{Category: "food", Subtype: "pork", Unit: "kg", KgPerUnit: 12.1},
		{Category: "energy", Subtype: "electricity", Unit: "kwh", KgPerUnit: 0.5},
		{Category: "energy", Subtype: "natural_gas", Unit: "therms", KgPerUnit: 5.3},
	})
}

// Lookup returns the kg-per-unit factor for an activity triple. The match is
// case insensitive.
func (c *Catalog) Lookup(category, subtype, unit string) (float64, bool) {
	factor, ok := c.index[factorKey(category, subtype, unit)]
	return factor, ok
}

// Factors returns every catalog entry sorted by category, subtype, unit.
func (c *Catalog) Factors() []Factor {
	out := make([]Factor, len(c.factors))
	copy(out, c.factors)
	sortFactors(out)
	return out
}

// FactorsByCategory returns the entries for one category, sorted.
func (c *Catalog) FactorsByCategory(category string) []Factor {
	want := strings.ToLower(category)
	var out []Factor
	for _, f := range c.factors {
		if strings.ToLower(f.Category) == want {
			out = append(out, f)
		}
	}
	sortFactors(out)
	return out
}

func sortFactors(factors []Factor) {
	sort.Slice(factors, func(i, j int) bool {
		if factors[i].Category != factors[j].Category {
			return factors[i].Category < factors[j].Category
		}
		if factors[i].Subtype != factors[j].Subtype {
			return factors[i].Subtype < factors[j].Subtype
		}
		return factors[i].Unit < factors[j].Unit
	})
}
