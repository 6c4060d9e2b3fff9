package scale

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"
)

// sigmaPerTolerance maps the tolerance band onto the normal spread: the
// band edge sits at three standard deviations from nominal.
const sigmaPerTolerance = 3.0

// maxRedraws bounds rejection sampling for the truncated normal before the
// draw is clamped to the band edge.
const maxRedraws = 16

// Generator produces populations and samples from a single random source.
// It is not safe for concurrent use.
type Generator struct {
	src rand.Source
}

// NewGenerator returns a Generator with a deterministic PCG source.
func NewGenerator(seed uint64) *Generator {
	return &Generator{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// NewRandomGenerator returns a Generator seeded from the runtime.
func NewRandomGenerator() *Generator {
	return &Generator{src: rand.NewPCG(rand.Uint64(), rand.Uint64())}
}

// Generate produces cfg.Count parts whose weights follow a normal
// distribution centred on the nominal weight and truncated to the
// tolerance band.
func (g *Generator) Generate(cfg ProductionConfig) (*Population, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pop := &Population{
		ID:    uuid.NewString(),
		Parts: make([]Part, 0, cfg.Count),
	}
	pop.Parts = g.appendParts(pop.Parts, cfg)
	return pop, nil
}

// GenerateGroups produces one population holding the parts of every group,
// in group order. All groups are validated before any part is created.
func (g *Generator) GenerateGroups(groups []WeightGroup) (*Population, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: at least one weight group is required", ErrInvalidConfiguration)
	}
	total := 0
	for i, grp := range groups {
		if err := grp.Validate(); err != nil {
			return nil, fmt.Errorf("group %d (%q): %w", i, grp.Name, err)
		}
		if grp.Count > MaxParts-total {
			return nil, fmt.Errorf("%w: weight groups hold more than %d parts", ErrInvalidConfiguration, MaxParts)
		}
		total += grp.Count
	}
	pop := &Population{
		ID:    uuid.NewString(),
		Parts: make([]Part, 0, total),
	}
	for _, grp := range groups {
		pop.Parts = g.appendParts(pop.Parts, grp.ProductionConfig)
	}
	return pop, nil
}

func (g *Generator) appendParts(parts []Part, cfg ProductionConfig) []Part {
	halfBand := cfg.NominalWeight * cfg.TolerancePercent / 100
	if halfBand == 0 {
		for i := 0; i < cfg.Count; i++ {
			parts = append(parts, Part{Weight: cfg.NominalWeight})
		}
		return parts
	}

	lo, hi := cfg.NominalWeight-halfBand, cfg.NominalWeight+halfBand
	dist := distuv.Normal{
		Mu:    cfg.NominalWeight,
		Sigma: halfBand / sigmaPerTolerance,
		Src:   g.src,
	}
	for i := 0; i < cfg.Count; i++ {
		w := dist.Rand()
		for n := 0; n < maxRedraws && (w < lo || w > hi); n++ {
			w = dist.Rand()
		}
		parts = append(parts, Part{Weight: math.Min(math.Max(w, lo), hi)})
	}
	return parts
}
