package scale

import (
	"fmt"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// TakeSample selects size distinct parts of pop uniformly at random.
// A size outside [1, pop.Len()] is rejected rather than clamped.
func (g *Generator) TakeSample(pop *Population, size int) (Sample, error) {
	n := pop.Len()
	if size <= 0 || size > n {
		return Sample{}, fmt.Errorf("%w: requested %d of %d parts", ErrSampleSizeOutOfRange, size, n)
	}
	idxs := make([]int, size)
	sampleuv.WithoutReplacement(idxs, n, g.src)
	return Sample{population: pop, indices: idxs}, nil
}
