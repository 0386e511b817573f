package dice

import "math/rand"

// RollWithRng rolls every spec in order against rng. Result.Total is the sum
// of every die rolled.
func RollWithRng(rng *rand.Rand, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}
	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}
	}

	result := Result{Rolls: make([]Roll, 0, len(specs))}
	for _, spec := range specs {
		roll := rollSpec(rng, spec)
		result.Rolls = append(result.Rolls, roll)
		result.Total += roll.Total
	}
	return result, nil
}

func rollSpec(rng *rand.Rand, spec Spec) Roll {
	roll := Roll{Sides: spec.Sides, Results: make([]int, spec.Count)}
	for i := range roll.Results {
		roll.Results[i] = rng.Intn(spec.Sides) + 1
		roll.Total += roll.Results[i]
	}
	return roll
}
