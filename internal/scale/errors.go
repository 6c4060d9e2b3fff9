package scale

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a production config has a
	// non-positive count or nominal weight, or an out-of-range tolerance.
	ErrInvalidConfiguration = errors.New("invalid production configuration")

	// ErrInvalidReferenceCount is returned by Calibrate for a reference count
	// below one. It matches ErrInvalidConfiguration under errors.Is.
	ErrInvalidReferenceCount = fmt.Errorf("%w: reference count must be positive", ErrInvalidConfiguration)

	// ErrSampleSizeOutOfRange is returned when a requested sample size is
	// zero, negative or larger than the population.
	ErrSampleSizeOutOfRange = errors.New("sample size out of range")

	// ErrCalibrationMissing is returned when weighing is attempted without a
	// calibration that belongs to the current population.
	ErrCalibrationMissing = errors.New("calibration missing")

	// ErrEmptySample is returned when calibrating or weighing a zero-length sample.
	ErrEmptySample = errors.New("empty sample")
)

// ErrNoPopulation is returned when sampling or calibrating before any
// production run. It matches ErrSampleSizeOutOfRange under errors.Is.
var ErrNoPopulation = fmt.Errorf("%w: no population produced", ErrSampleSizeOutOfRange)
