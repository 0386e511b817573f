package dice

import (
	"context"
	"math/rand"
	"sync"
)

// Roller evaluates dice formulas for the trigger pipeline.
type Roller interface {
	Roll(ctx context.Context, formula string) (Outcome, error)
}

// SeededRoller evaluates formulas against one seeded source, safe for
// concurrent use.
type SeededRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRoller creates a roller whose sequence is fixed by seed.
func NewSeededRoller(seed int64) *SeededRoller {
	return &SeededRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll parses and evaluates formula.
func (r *SeededRoller) Roll(ctx context.Context, formula string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	parsed, err := ParseFormula(formula)
	if err != nil {
		return Outcome{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return parsed.Roll(r.rng), nil
}
