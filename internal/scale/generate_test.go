package scale

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestGenerate_CountAndPositivity(t *testing.T) {
	t.Parallel()
	g := NewGenerator(1)

	for _, n := range []int{1, 2, 17, 1000} {
		pop, err := g.Generate(ProductionConfig{Count: n, NominalWeight: 5.0, TolerancePercent: 10})
		require.NoError(t, err)
		require.Len(t, pop.Parts, n)
		assert.NotEmpty(t, pop.ID)
		for i, p := range pop.Parts {
			assert.Greater(t, p.Weight, 0.0, "part %d", i)
		}
	}
}

func TestGenerate_MeanConvergesToNominal(t *testing.T) {
	t.Parallel()
	g := NewGenerator(42)

	pop, err := g.Generate(ProductionConfig{Count: 10000, NominalWeight: 5.0, TolerancePercent: 2})
	require.NoError(t, err)

	mean, std := stat.MeanStdDev(pop.Weights(), nil)
	assert.InDelta(t, 5.0, mean, 0.01)
	// Tolerance of 2% is the ±3σ band, so σ ≈ 0.0333.
	assert.InDelta(t, 5.0*0.02/3, std, 0.005)
}

func TestGenerate_WeightsStayInsideToleranceBand(t *testing.T) {
	t.Parallel()
	g := NewGenerator(7)

	pop, err := g.Generate(ProductionConfig{Count: 5000, NominalWeight: 10, TolerancePercent: 5})
	require.NoError(t, err)
	for _, w := range pop.Weights() {
		assert.GreaterOrEqual(t, w, 9.5)
		assert.LessOrEqual(t, w, 10.5)
	}
}

func TestGenerate_ZeroToleranceIsExact(t *testing.T) {
	t.Parallel()
	pop, err := NewGenerator(3).Generate(ProductionConfig{Count: 25, NominalWeight: 2.5})
	require.NoError(t, err)
	for _, w := range pop.Weights() {
		assert.Equal(t, 2.5, w)
	}
}

func TestGenerate_SameSeedSameWeights(t *testing.T) {
	t.Parallel()
	cfg := ProductionConfig{Count: 200, NominalWeight: 3, TolerancePercent: 4}

	a, err := NewGenerator(99).Generate(cfg)
	require.NoError(t, err)
	b, err := NewGenerator(99).Generate(cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(a.Weights(), b.Weights()); diff != "" {
		t.Errorf("weights differ for equal seeds (-a +b):\n%s", diff)
	}
	assert.NotEqual(t, a.ID, b.ID, "every production run gets its own population ID")
}

func TestGenerate_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  ProductionConfig
	}{
		{"zero count", ProductionConfig{Count: 0, NominalWeight: 1}},
		{"negative count", ProductionConfig{Count: -3, NominalWeight: 1}},
		{"zero nominal", ProductionConfig{Count: 10, NominalWeight: 0}},
		{"negative nominal", ProductionConfig{Count: 10, NominalWeight: -1}},
		{"negative tolerance", ProductionConfig{Count: 10, NominalWeight: 1, TolerancePercent: -1}},
		{"tolerance of 100%", ProductionConfig{Count: 10, NominalWeight: 1, TolerancePercent: 100}},
		{"count above MaxParts", ProductionConfig{Count: MaxParts + 1, NominalWeight: 1}},
		{"max int count", ProductionConfig{Count: math.MaxInt, NominalWeight: 1}},
		{"NaN nominal", ProductionConfig{Count: 10, NominalWeight: math.NaN()}},
		{"infinite nominal", ProductionConfig{Count: 10, NominalWeight: math.Inf(1)}},
		{"NaN tolerance", ProductionConfig{Count: 10, NominalWeight: 1, TolerancePercent: math.NaN()}},
		{"negative infinite tolerance", ProductionConfig{Count: 10, NominalWeight: 1, TolerancePercent: math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop, err := NewGenerator(1).Generate(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, pop)
		})
	}
}

func TestGenerateGroups(t *testing.T) {
	t.Parallel()
	groups := []WeightGroup{
		{Name: "small", ProductionConfig: ProductionConfig{Count: 3, NominalWeight: 1.0}},
		{Name: "large", ProductionConfig: ProductionConfig{Count: 5, NominalWeight: 4.0}},
	}

	pop, err := NewGenerator(5).GenerateGroups(groups)
	require.NoError(t, err)
	want := []float64{1, 1, 1, 4, 4, 4, 4, 4}
	if diff := cmp.Diff(want, pop.Weights()); diff != "" {
		t.Errorf("group weights mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateGroups_Invalid(t *testing.T) {
	t.Parallel()
	g := NewGenerator(5)

	_, err := g.GenerateGroups(nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = g.GenerateGroups([]WeightGroup{
		{Name: "ok", ProductionConfig: ProductionConfig{Count: 3, NominalWeight: 1.0}},
		{Name: "broken", ProductionConfig: ProductionConfig{Count: 0, NominalWeight: 1.0}},
	})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestGenerateGroups_TotalAboveMaxParts(t *testing.T) {
	t.Parallel()
	half := ProductionConfig{Count: MaxParts/2 + 1, NominalWeight: 1}
	tests := []struct {
		name   string
		groups []WeightGroup
	}{
		{"two halves", []WeightGroup{{Name: "a", ProductionConfig: half}, {Name: "b", ProductionConfig: half}}},
		{"full then one", []WeightGroup{
			{Name: "full", ProductionConfig: ProductionConfig{Count: MaxParts, NominalWeight: 1}},
			{Name: "one", ProductionConfig: ProductionConfig{Count: 1, NominalWeight: 1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop, err := NewGenerator(5).GenerateGroups(tt.groups)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, pop)
		})
	}
}
