package scale

import "fmt"

// State is the position of a Session in the produce/calibrate/weigh cycle.
type State int

const (
	StateEmpty State = iota
	StateProduced
	StateCalibrated
	StateWeighed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateProduced:
		return "produced"
	case StateCalibrated:
		return "calibrated"
	case StateWeighed:
		return "weighed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateEmpty; st <= StateWeighed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session is the explicit state of one counting-scale run. It is a value:
// every transition returns the next Session and leaves the receiver as it
// was. The zero value is an empty session.
type Session struct {
	state       State
	population  *Population
	calibration *CalibrationResult
	result      *WeighingResult
}

// State returns the current state.
func (s Session) State() State { return s.state }

// Population returns the current population, or nil when empty.
func (s Session) Population() *Population { return s.population }

// Calibration returns the current calibration, or nil when uncalibrated.
func (s Session) Calibration() *CalibrationResult { return s.calibration }

// Result returns the most recent weighing, or nil.
func (s Session) Result() *WeighingResult { return s.result }

// Produce moves to StateProduced with pop as the current population. Any
// calibration or weighing from a previous population is dropped.
func (s Session) Produce(pop *Population) (Session, error) {
	if pop.Len() == 0 {
		return s, fmt.Errorf("produce: %w: population is empty", ErrInvalidConfiguration)
	}
	return Session{state: StateProduced, population: pop}, nil
}

// Calibrate moves to StateCalibrated. The calibration must have been
// derived from the current population; the previous weighing is dropped.
func (s Session) Calibrate(cal *CalibrationResult) (Session, error) {
	if s.population.Len() == 0 {
		return s, fmt.Errorf("calibrate: %w", ErrNoPopulation)
	}
	if cal == nil {
		return s, fmt.Errorf("calibrate: %w", ErrCalibrationMissing)
	}
	if !finite(cal.EstimatedUnitWeight) || cal.EstimatedUnitWeight <= 0 {
		return s, fmt.Errorf("calibrate: %w: unit weight %g is not positive", ErrCalibrationMissing, cal.EstimatedUnitWeight)
	}
	if cal.PopulationID != s.population.ID {
		return s, fmt.Errorf("calibrate: %w: calibration is for population %q, current is %q",
			ErrCalibrationMissing, cal.PopulationID, s.population.ID)
	}
	return Session{state: StateCalibrated, population: s.population, calibration: cal}, nil
}

// RequireCalibration returns the calibration that is valid for the current
// population, or ErrCalibrationMissing.
func (s Session) RequireCalibration() (*CalibrationResult, error) {
	if s.state != StateCalibrated && s.state != StateWeighed {
		return nil, fmt.Errorf("session %s: %w", s.state, ErrCalibrationMissing)
	}
	if s.calibration == nil || s.population == nil || s.calibration.PopulationID != s.population.ID {
		return nil, fmt.Errorf("session %s: %w: calibration is stale", s.state, ErrCalibrationMissing)
	}
	return s.calibration, nil
}

// Weigh moves to StateWeighed with res as the latest result. It may be
// repeated against the same calibration.
func (s Session) Weigh(res *WeighingResult) (Session, error) {
	cal, err := s.RequireCalibration()
	if err != nil {
		return s, err
	}
	if res == nil {
		return s, fmt.Errorf("weigh: %w", ErrEmptySample)
	}
	return Session{state: StateWeighed, population: s.population, calibration: cal, result: res}, nil
}

// Reset returns an empty session.
func (s Session) Reset() Session {
	return Session{}
}
