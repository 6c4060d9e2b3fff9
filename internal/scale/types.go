// Package scale implements the statistical core of a counting scale:
// synthetic part populations, sampling without replacement, unit-weight
// calibration against a reference count and count estimation by weight.
//
// Every operation is a synchronous function of its explicit inputs. The
// only state that survives between calls is the Session value, which the
// caller threads through each transition.
package scale

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Part is one simulated physical unit.
type Part struct {
	Weight float64 `json:"weight"`
}

// ProductionConfig describes how a population is generated.
type ProductionConfig struct {
	Count         int     `json:"count"`
	NominalWeight float64 `json:"nominal_weight"`
	// TolerancePercent is the half-width of the weight band around the
	// nominal value, as a percentage. It is treated as the ±3σ limit.
	TolerancePercent float64 `json:"tolerance_percent"`
}

// MaxParts bounds the number of parts in one population, whether produced
// from a single config or summed across weight groups.
const MaxParts = 1_000_000

// Validate checks the positivity and range constraints of the config.
func (c ProductionConfig) Validate() error {
	if c.Count <= 0 || c.Count > MaxParts {
		return fmt.Errorf("%w: count must be in [1, %d], got %d", ErrInvalidConfiguration, MaxParts, c.Count)
	}
	if !finite(c.NominalWeight) || c.NominalWeight <= 0 {
		return fmt.Errorf("%w: nominal_weight must be positive and finite, got %g", ErrInvalidConfiguration, c.NominalWeight)
	}
	if !finite(c.TolerancePercent) || c.TolerancePercent < 0 || c.TolerancePercent >= 100 {
		return fmt.Errorf("%w: tolerance_percent must be in [0, 100), got %g", ErrInvalidConfiguration, c.TolerancePercent)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// WeightGroup is a named production config. Several groups produce a mixed batch.
type WeightGroup struct {
	Name string `json:"name"`
	ProductionConfig
}

// Population is the batch produced by one production run. Parts are held
// by index and never modified after generation.
type Population struct {
	ID    string `json:"id"`
	Parts []Part `json:"parts"`
}

// Len returns the number of parts, treating a nil population as empty.
func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Parts)
}

// Weights returns a copy of every part weight in population order.
func (p *Population) Weights() []float64 {
	if p == nil {
		return nil
	}
	ws := make([]float64, len(p.Parts))
	for i, part := range p.Parts {
		ws[i] = part.Weight
	}
	return ws
}

// Sample is a view by index into a Population.
type Sample struct {
	population *Population
	indices    []int
}

// Len returns the number of parts in the sample.
func (s Sample) Len() int {
	return len(s.indices)
}

// Indices returns a copy of the population indices the sample refers to.
func (s Sample) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// PopulationID returns the ID of the population the sample was drawn from.
func (s Sample) PopulationID() string {
	if s.population == nil {
		return ""
	}
	return s.population.ID
}

// Weights returns the weights of the sampled parts.
func (s Sample) Weights() []float64 {
	ws := make([]float64, len(s.indices))
	for i, idx := range s.indices {
		ws[i] = s.population.Parts[idx].Weight
	}
	return ws
}

// TotalWeight returns the summed weight of the sampled parts.
func (s Sample) TotalWeight() float64 {
	if len(s.indices) == 0 {
		return 0
	}
	return floats.Sum(s.Weights())
}

// CalibrationResult is the unit-weight estimate derived from a reference sample.
type CalibrationResult struct {
	PopulationID        string  `json:"population_id"`
	ReferenceCount      int     `json:"reference_count"`
	SampleSize          int     `json:"sample_size"`
	SampleTotalWeight   float64 `json:"sample_total_weight"`
	EstimatedUnitWeight float64 `json:"estimated_unit_weight"`
	// Dispersion figures are zero when the sample holds a single part.
	EstimatedUnitWeightStdDev float64 `json:"estimated_unit_weight_std_dev"`
	UnitWeightStdErr          float64 `json:"unit_weight_std_err"`
}

// WeighingResult is the count estimate for a weighed sample.
type WeighingResult struct {
	SampleSize           int     `json:"sample_size"`
	SampleTotalWeight    float64 `json:"sample_total_weight"`
	EstimatedCount       float64 `json:"estimated_count"`
	RoundedCount         int     `json:"rounded_count"`
	AbsoluteError        float64 `json:"absolute_error"`
	RelativeErrorPercent float64 `json:"relative_error_percent"`
}
