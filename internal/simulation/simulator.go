// Package simulation drives a scale.Session the way an operator at the
// bench would: each step takes a fixed amount of machine time and only
// one step runs at a time.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/counting-scale/internal/db"
	"github.com/banshee-data/counting-scale/internal/monitoring"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/timeutil"
)

// ErrBusy is returned when a step is requested while another is running.
var ErrBusy = errors.New("simulator busy")

// RunRecorder persists completed weighings.
type RunRecorder interface {
	RecordRun(run db.WeighingRun) (db.WeighingRun, error)
}

// Delays is the simulated duration of each step.
type Delays struct {
	Production  time.Duration
	Calibration time.Duration
	Weighing    time.Duration
}

// DefaultDelays match the timings of the bench scale.
var DefaultDelays = Delays{
	Production:  1000 * time.Millisecond,
	Calibration: 1500 * time.Millisecond,
	Weighing:    1500 * time.Millisecond,
}

// Options configures a Simulator. Zero fields take defaults: a randomly
// seeded generator, the real clock and no run recording.
type Options struct {
	Generator *scale.Generator
	Clock     timeutil.Clock
	Delays    Delays
	Recorder  RunRecorder
}

// Snapshot is the externally visible state of the simulator.
type Snapshot struct {
	State          scale.State              `json:"state"`
	Busy           bool                     `json:"busy"`
	PopulationID   string                   `json:"population_id,omitempty"`
	PopulationSize int                      `json:"population_size"`
	Calibration    *scale.CalibrationResult `json:"calibration,omitempty"`
	Result         *scale.WeighingResult    `json:"result,omitempty"`
}

// Simulator owns the session state. It is safe for concurrent use.
type Simulator struct {
	mu       sync.Mutex
	gen      *scale.Generator
	clock    timeutil.Clock
	delays   Delays
	recorder RunRecorder
	session  scale.Session
	busy     bool
}

// New returns a Simulator with an empty session.
func New(opts Options) *Simulator {
	s := &Simulator{
		gen:      opts.Generator,
		clock:    opts.Clock,
		delays:   opts.Delays,
		recorder: opts.Recorder,
	}
	if s.gen == nil {
		s.gen = scale.NewRandomGenerator()
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	return s
}

// Produce generates a single-group population after the production delay.
func (s *Simulator) Produce(ctx context.Context, cfg scale.ProductionConfig) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return s.Snapshot(), err
	}
	return s.step(ctx, s.delays.Production, func() error {
		pop, err := s.gen.Generate(cfg)
		if err != nil {
			return err
		}
		return s.produced(pop)
	})
}

// ProduceGroups generates a mixed population from several weight groups.
func (s *Simulator) ProduceGroups(ctx context.Context, groups []scale.WeightGroup) (Snapshot, error) {
	if len(groups) == 0 {
		return s.Snapshot(), fmt.Errorf("%w: no weight groups", scale.ErrInvalidConfiguration)
	}
	for _, g := range groups {
		if err := g.Validate(); err != nil {
			return s.Snapshot(), fmt.Errorf("group %q: %w", g.Name, err)
		}
	}
	return s.step(ctx, s.delays.Production, func() error {
		pop, err := s.gen.GenerateGroups(groups)
		if err != nil {
			return err
		}
		return s.produced(pop)
	})
}

func (s *Simulator) produced(pop *scale.Population) error {
	next, err := s.session.Produce(pop)
	if err != nil {
		return err
	}
	s.session = next
	monitoring.Logf("produced population %s with %d parts", pop.ID, pop.Len())
	return nil
}

// Calibrate draws referenceCount parts from the current population and
// derives the unit weight from them.
func (s *Simulator) Calibrate(ctx context.Context, referenceCount int) (Snapshot, error) {
	if referenceCount < 1 {
		return s.Snapshot(), scale.ErrInvalidReferenceCount
	}
	if err := s.precheck(func(sess scale.Session) error {
		n := sess.Population().Len()
		if n == 0 {
			return scale.ErrNoPopulation
		}
		if referenceCount > n {
			return fmt.Errorf("%w: requested %d of %d parts", scale.ErrSampleSizeOutOfRange, referenceCount, n)
		}
		return nil
	}); err != nil {
		return s.Snapshot(), err
	}

	return s.step(ctx, s.delays.Calibration, func() error {
		pop := s.session.Population()
		if pop.Len() == 0 {
			return scale.ErrNoPopulation
		}
		sample, err := s.gen.TakeSample(pop, referenceCount)
		if err != nil {
			return err
		}
		cal, err := scale.Calibrate(sample, referenceCount)
		if err != nil {
			return err
		}
		next, err := s.session.Calibrate(cal)
		if err != nil {
			return err
		}
		s.session = next
		monitoring.Logf("calibrated unit weight %.4f from %d parts", cal.EstimatedUnitWeight, referenceCount)
		return nil
	})
}

// Weigh draws sampleSize parts and estimates their count from the
// current calibration. Completed weighings are passed to the recorder.
func (s *Simulator) Weigh(ctx context.Context, sampleSize int) (Snapshot, error) {
	if err := s.precheck(func(sess scale.Session) error {
		if _, err := sess.RequireCalibration(); err != nil {
			return err
		}
		n := sess.Population().Len()
		if sampleSize <= 0 || sampleSize > n {
			return fmt.Errorf("%w: requested %d of %d parts", scale.ErrSampleSizeOutOfRange, sampleSize, n)
		}
		return nil
	}); err != nil {
		return s.Snapshot(), err
	}

	var run *db.WeighingRun
	snap, err := s.step(ctx, s.delays.Weighing, func() error {
		cal, err := s.session.RequireCalibration()
		if err != nil {
			return err
		}
		pop := s.session.Population()
		sample, err := s.gen.TakeSample(pop, sampleSize)
		if err != nil {
			return err
		}
		res, err := scale.WeighSample(sample, cal)
		if err != nil {
			return err
		}
		next, err := s.session.Weigh(res)
		if err != nil {
			return err
		}
		s.session = next
		run = &db.WeighingRun{
			PopulationID:         pop.ID,
			PopulationSize:       pop.Len(),
			ReferenceCount:       cal.ReferenceCount,
			UnitWeight:           cal.EstimatedUnitWeight,
			SampleSize:           res.SampleSize,
			SampleTotalWeight:    res.SampleTotalWeight,
			EstimatedCount:       res.EstimatedCount,
			RoundedCount:         res.RoundedCount,
			AbsoluteError:        res.AbsoluteError,
			RelativeErrorPercent: res.RelativeErrorPercent,
			CreatedAt:            s.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return snap, err
	}

	if run != nil && s.recorder != nil {
		if _, err := s.recorder.RecordRun(*run); err != nil {
			monitoring.Logf("failed to record weighing run: %v", err)
		}
	}
	return snap, nil
}

// Reset discards the population, calibration and result.
func (s *Simulator) Reset() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return s.snapshotLocked(), ErrBusy
	}
	s.session = s.session.Reset()
	return s.snapshotLocked(), nil
}

// Snapshot returns the current state.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Distribution returns the 0.1-unit weight histogram of the current
// population, empty when nothing has been produced.
func (s *Simulator) Distribution() []scale.WeightBin {
	s.mu.Lock()
	pop := s.session.Population()
	s.mu.Unlock()
	return scale.Distribution(pop)
}

// Weights returns the part weights of the current population in
// production order, or nil when nothing has been produced.
func (s *Simulator) Weights() []float64 {
	s.mu.Lock()
	pop := s.session.Population()
	s.mu.Unlock()
	return pop.Weights()
}

func (s *Simulator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       s.session.State(),
		Busy:        s.busy,
		Calibration: s.session.Calibration(),
		Result:      s.session.Result(),
	}
	if pop := s.session.Population(); pop != nil {
		snap.PopulationID = pop.ID
		snap.PopulationSize = pop.Len()
	}
	return snap
}

// precheck validates the session without starting a step, so obvious
// misuse fails before any machine time is spent.
func (s *Simulator) precheck(check func(scale.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	return check(s.session)
}

// step marks the simulator busy, waits for delay and then applies fn under
// the lock. Cancellation during the wait leaves the session unchanged.
func (s *Simulator) step(ctx context.Context, delay time.Duration, fn func() error) (Snapshot, error) {
	s.mu.Lock()
	if s.busy {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	sleepErr := s.clock.Sleep(ctx, delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if sleepErr != nil {
		return s.snapshotLocked(), sleepErr
	}
	if err := fn(); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}
