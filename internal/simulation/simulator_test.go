package simulation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/counting-scale/internal/db"
	"github.com/banshee-data/counting-scale/internal/monitoring"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/timeutil"
)

var (
	epoch = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	bolts = scale.ProductionConfig{Count: 1000, NominalWeight: 5.0, TolerancePercent: 2}
)

type memRecorder struct {
	mu   sync.Mutex
	runs []db.WeighingRun
	err  error
}

func (r *memRecorder) RecordRun(run db.WeighingRun) (db.WeighingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return db.WeighingRun{}, r.err
	}
	r.runs = append(r.runs, run)
	return run, nil
}

func newTestSimulator(t *testing.T) (*Simulator, *timeutil.MockClock, *memRecorder) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	rec := &memRecorder{}
	sim := New(Options{
		Generator: scale.NewGenerator(42),
		Clock:     clock,
		Delays:    DefaultDelays,
		Recorder:  rec,
	})
	return sim, clock, rec
}

func TestSimulator_FullCycle(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, clock, rec := newTestSimulator(t)
	ctx := context.Background()

	snap, err := sim.Produce(ctx, bolts)
	require.NoError(t, err)
	assert.Equal(t, scale.StateProduced, snap.State)
	assert.Equal(t, 1000, snap.PopulationSize)
	assert.NotEmpty(t, snap.PopulationID)
	assert.False(t, snap.Busy)

	snap, err = sim.Calibrate(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, scale.StateCalibrated, snap.State)
	require.NotNil(t, snap.Calibration)
	assert.InDelta(t, 5.0, snap.Calibration.EstimatedUnitWeight, 0.05)
	assert.Equal(t, 50, snap.Calibration.ReferenceCount)

	snap, err = sim.Weigh(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, scale.StateWeighed, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 200, snap.Result.SampleSize)
	assert.Less(t, math.Abs(snap.Result.EstimatedCount-200), 20.0)

	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond, 1500 * time.Millisecond}, clock.Sleeps())

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, snap.PopulationID, run.PopulationID)
	assert.Equal(t, 1000, run.PopulationSize)
	assert.Equal(t, snap.Result.RoundedCount, run.RoundedCount)
	assert.Equal(t, epoch.Add(4*time.Second), run.CreatedAt)

	// Weighing may be repeated against the same calibration.
	_, err = sim.Weigh(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rec.runs, 2)
}

func TestSimulator_ProduceGroups(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, _, _ := newTestSimulator(t)

	snap, err := sim.ProduceGroups(context.Background(), []scale.WeightGroup{
		{Name: "small", ProductionConfig: scale.ProductionConfig{Count: 300, NominalWeight: 2, TolerancePercent: 1}},
		{Name: "large", ProductionConfig: scale.ProductionConfig{Count: 200, NominalWeight: 8, TolerancePercent: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 500, snap.PopulationSize)

	_, err = sim.ProduceGroups(context.Background(), nil)
	assert.ErrorIs(t, err, scale.ErrInvalidConfiguration)
}

func TestSimulator_Guards(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, clock, _ := newTestSimulator(t)
	ctx := context.Background()

	_, err := sim.Calibrate(ctx, 10)
	assert.ErrorIs(t, err, scale.ErrNoPopulation)
	assert.ErrorIs(t, err, scale.ErrSampleSizeOutOfRange)

	_, err = sim.Weigh(ctx, 10)
	assert.ErrorIs(t, err, scale.ErrCalibrationMissing)

	_, err = sim.Produce(ctx, scale.ProductionConfig{Count: 0, NominalWeight: 5})
	assert.ErrorIs(t, err, scale.ErrInvalidConfiguration)

	assert.Empty(t, clock.Sleeps(), "rejected steps spend no machine time")

	_, err = sim.Produce(ctx, bolts)
	require.NoError(t, err)

	_, err = sim.Calibrate(ctx, 0)
	assert.ErrorIs(t, err, scale.ErrInvalidReferenceCount)
	_, err = sim.Calibrate(ctx, 1001)
	assert.ErrorIs(t, err, scale.ErrSampleSizeOutOfRange)

	_, err = sim.Weigh(ctx, 10)
	assert.ErrorIs(t, err, scale.ErrCalibrationMissing)

	_, err = sim.Calibrate(ctx, 50)
	require.NoError(t, err)
	_, err = sim.Weigh(ctx, 0)
	assert.ErrorIs(t, err, scale.ErrSampleSizeOutOfRange)
	_, err = sim.Weigh(ctx, 1001)
	assert.ErrorIs(t, err, scale.ErrSampleSizeOutOfRange)
}

func TestSimulator_ProductionDropsCalibration(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, _, _ := newTestSimulator(t)
	ctx := context.Background()

	_, err := sim.Produce(ctx, bolts)
	require.NoError(t, err)
	_, err = sim.Calibrate(ctx, 50)
	require.NoError(t, err)

	snap, err := sim.Produce(ctx, bolts)
	require.NoError(t, err)
	assert.Nil(t, snap.Calibration)
	assert.Nil(t, snap.Result)

	_, err = sim.Weigh(ctx, 10)
	assert.ErrorIs(t, err, scale.ErrCalibrationMissing)
}

func TestSimulator_Reset(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, _, _ := newTestSimulator(t)
	ctx := context.Background()

	_, err := sim.Produce(ctx, bolts)
	require.NoError(t, err)
	_, err = sim.Calibrate(ctx, 50)
	require.NoError(t, err)

	snap, err := sim.Reset()
	require.NoError(t, err)
	assert.Equal(t, scale.StateEmpty, snap.State)
	assert.Zero(t, snap.PopulationSize)
	assert.Empty(t, sim.Distribution())
	assert.Empty(t, sim.Weights())

	_, err = sim.Weigh(ctx, 10)
	assert.ErrorIs(t, err, scale.ErrCalibrationMissing)
}

func TestSimulator_CancelledDelayLeavesStateUnchanged(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, _, _ := newTestSimulator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := sim.Produce(ctx, bolts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, scale.StateEmpty, snap.State)
	assert.False(t, snap.Busy)
}

func TestSimulator_RecorderFailureIsLogged(t *testing.T) {
	sim, _, rec := newTestSimulator(t)
	rec.err = errors.New("database is locked")

	var logged []string
	defer monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, format)
	})()

	ctx := context.Background()
	_, err := sim.Produce(ctx, bolts)
	require.NoError(t, err)
	_, err = sim.Calibrate(ctx, 50)
	require.NoError(t, err)
	_, err = sim.Weigh(ctx, 20)
	require.NoError(t, err, "weighing succeeds even when recording fails")

	assert.Contains(t, logged, "failed to record weighing run: %v")
}

func TestSimulator_Distribution(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	sim, _, _ := newTestSimulator(t)

	_, err := sim.Produce(context.Background(), bolts)
	require.NoError(t, err)

	bins := sim.Distribution()
	require.NotEmpty(t, bins)
	total := 0
	for i, b := range bins {
		total += b.Count
		if i > 0 {
			assert.Greater(t, b.Weight, bins[i-1].Weight)
		}
	}
	assert.Equal(t, 1000, total)
	assert.Len(t, sim.Weights(), 1000)
}

// gateClock blocks Sleep until release is closed.
type gateClock struct {
	entered chan struct{}
	release chan struct{}
}

func (c *gateClock) Now() time.Time { return epoch }

func (c *gateClock) Sleep(ctx context.Context, d time.Duration) error {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSimulator_BusyWhileStepRuns(t *testing.T) {
	defer monitoring.SetLogger(nil)()
	clock := &gateClock{entered: make(chan struct{}, 1), release: make(chan struct{})}
	sim := New(Options{Generator: scale.NewGenerator(7), Clock: clock, Delays: DefaultDelays})

	done := make(chan error, 1)
	go func() {
		_, err := sim.Produce(context.Background(), bolts)
		done <- err
	}()
	<-clock.entered

	assert.True(t, sim.Snapshot().Busy)
	_, err := sim.Produce(context.Background(), bolts)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = sim.Reset()
	assert.ErrorIs(t, err, ErrBusy)

	close(clock.release)
	require.NoError(t, <-done)
	snap := sim.Snapshot()
	assert.False(t, snap.Busy)
	assert.Equal(t, scale.StateProduced, snap.State)
}
