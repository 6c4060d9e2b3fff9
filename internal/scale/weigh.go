package scale

import (
	"fmt"
	"math"
)

// WeighSample estimates how many parts are in sample from its total weight
// and the calibrated unit weight, and reports the error against the true
// sample size. It is a pure function of its inputs.
func WeighSample(sample Sample, cal *CalibrationResult) (*WeighingResult, error) {
	if cal == nil || !(cal.EstimatedUnitWeight > 0) {
		return nil, fmt.Errorf("weigh: %w", ErrCalibrationMissing)
	}
	if sample.Len() == 0 {
		return nil, fmt.Errorf("weigh: %w", ErrEmptySample)
	}

	total := sample.TotalWeight()
	estimated := total / cal.EstimatedUnitWeight
	rounded := int(math.Round(estimated))
	absErr := math.Abs(float64(rounded - sample.Len()))

	return &WeighingResult{
		SampleSize:           sample.Len(),
		SampleTotalWeight:    total,
		EstimatedCount:       estimated,
		RoundedCount:         rounded,
		AbsoluteError:        absErr,
		RelativeErrorPercent: absErr / float64(sample.Len()) * 100,
	}, nil
}
