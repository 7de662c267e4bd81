package calibration

import (
	"fmt"
	"math/rand"

	"lightdark-study/internal/models"
)

// Design holds the constants the trial generator works from.
type Design struct {
	FittsWidths      []float64
	FittsDistances   []float64
	FittsRepetitions int
	HicksLevels      []int
	HicksRepetitions int
	KeyAlphabet      []string
}

// DefaultDesign returns the 5×5×2 pointing grid and the 2..6 choice levels
// over the keys "1" to "7".
func DefaultDesign() Design {
	return Design{
		FittsWidths:      []float64{20, 40, 60, 80, 100},
		FittsDistances:   []float64{100, 200, 300, 400, 500},
		FittsRepetitions: 2,
		HicksLevels:      []int{2, 3, 4, 5, 6},
		HicksRepetitions: 8,
		KeyAlphabet:      []string{"1", "2", "3", "4", "5", "6", "7"},
	}
}

// Validate rejects designs the generator cannot serve. A design that passes
// always generates.
func (d Design) Validate() error {
	if len(d.FittsWidths) == 0 || len(d.FittsDistances) == 0 {
		return fmt.Errorf("fitts design needs at least one width and one distance")
	}
	for _, w := range d.FittsWidths {
		if w <= 0 {
			return fmt.Errorf("fitts width must be positive, got %v", w)
		}
	}
	for _, dist := range d.FittsDistances {
		if dist <= 0 {
			return fmt.Errorf("fitts distance must be positive, got %v", dist)
		}
	}
	if d.FittsRepetitions < 1 || d.HicksRepetitions < 1 {
		return fmt.Errorf("repetitions must be at least 1")
	}
	if len(d.HicksLevels) == 0 {
		return fmt.Errorf("hicks design needs at least one choice level")
	}
	for _, n := range d.HicksLevels {
		if n < 2 || n > len(d.KeyAlphabet) {
			return fmt.Errorf("choice level %d outside [2, %d]", n, len(d.KeyAlphabet))
		}
	}
	return nil
}

// FittsTrialCount is |widths| × |distances| × repetitions.
func (d Design) FittsTrialCount() int {
	return len(d.FittsWidths) * len(d.FittsDistances) * d.FittsRepetitions
}

// HicksTrialCount is |levels| × repetitions.
func (d Design) HicksTrialCount() int {
	return len(d.HicksLevels) * d.HicksRepetitions
}

// Generator produces shuffled calibration trial sequences. It is not safe
// for concurrent use; the session controller serializes access.
type Generator struct {
	design Design
	rng    *rand.Rand
}

func NewGenerator(design Design, rng *rand.Rand) *Generator {
	return &Generator{design: design, rng: rng}
}

func (g *Generator) Design() Design {
	return g.design
}

// FittsTrials returns every width/distance pair repeated and shuffled.
func (g *Generator) FittsTrials() []models.FittsTrialSpec {
	trials := make([]models.FittsTrialSpec, 0, g.design.FittsTrialCount())
	for _, width := range g.design.FittsWidths {
		for _, distance := range g.design.FittsDistances {
			for rep := 0; rep < g.design.FittsRepetitions; rep++ {
				trials = append(trials, models.FittsTrialSpec{Width: width, Distance: distance})
			}
		}
	}
	shuffle(g.rng, trials)
	return trials
}

// HicksTrials returns, per choice level, repetitions trials whose target is
// drawn from a random contiguous window of the key alphabet, shuffled
// across levels.
func (g *Generator) HicksTrials() []models.HicksTrialSpec {
	keys := g.design.KeyAlphabet
	trials := make([]models.HicksTrialSpec, 0, g.design.HicksTrialCount())
	for _, numChoices := range g.design.HicksLevels {
		for rep := 0; rep < g.design.HicksRepetitions; rep++ {
			start := g.rng.Intn(len(keys) - numChoices + 1)
			target := keys[start+g.rng.Intn(numChoices)]
			trials = append(trials, models.HicksTrialSpec{
				NumChoices:      numChoices,
				TargetKey:       target,
				RangeStartIndex: start,
			})
		}
	}
	shuffle(g.rng, trials)
	return trials
}

// shuffle is a Fisher–Yates pass over s.
func shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
