package scale

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Calibrate derives the mean unit weight from a reference sample the
// operator has counted as referenceCount pieces. The estimate is
// total weight / referenceCount with no rounding applied.
func Calibrate(sample Sample, referenceCount int) (*CalibrationResult, error) {
	if sample.Len() == 0 {
		return nil, fmt.Errorf("calibrate: %w", ErrEmptySample)
	}
	if referenceCount <= 0 {
		return nil, fmt.Errorf("calibrate: %w (got %d)", ErrInvalidReferenceCount, referenceCount)
	}

	weights := sample.Weights()
	total := floats.Sum(weights)
	res := &CalibrationResult{
		PopulationID:        sample.PopulationID(),
		ReferenceCount:      referenceCount,
		SampleSize:          len(weights),
		SampleTotalWeight:   total,
		EstimatedUnitWeight: total / float64(referenceCount),
	}

	// Dispersion needs at least two parts for an unbiased estimate.
	if len(weights) >= 2 {
		_, std := stat.MeanStdDev(weights, nil)
		res.EstimatedUnitWeightStdDev = std
		res.UnitWeightStdErr = stat.StdErr(std, float64(len(weights)))
	}
	return res, nil
}
