// Package check resolves difficulty checks and save-scaled damage.
package check

import "math"

// MeetsDifficulty reports whether total meets or beats difficulty.
func MeetsDifficulty(total, difficulty int) bool {
	return total >= difficulty
}

// Margin is total minus difficulty; negative on a failed check.
func Margin(total, difficulty int) int {
	return total - difficulty
}

// Result is a resolved check.
type Result struct {
	Success bool
	Margin  int
}

// Check resolves total against difficulty.
func Check(total, difficulty int) Result {
	return Result{
		Success: MeetsDifficulty(total, difficulty),
		Margin:  Margin(total, difficulty),
	}
}

// ScaleDamage applies a save multiplier to raw damage, rounding down.
// Negative raw damage and negative multipliers scale to zero.
func ScaleDamage(raw int, multiplier float64) int {
	if raw <= 0 || multiplier <= 0 {
		return 0
	}
	return int(math.Floor(float64(raw) * multiplier))
}
