// Package dice evaluates dice specs and formulas such as "2d6" or "1d4 + 2".
package dice

import apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"

// ErrMissingDice indicates a roll with no dice groups.
var ErrMissingDice = apperrors.New(apperrors.CodeDiceMissing, "at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = apperrors.New(apperrors.CodeDiceInvalidSpec, "dice must have positive sides and count")

// Spec describes a die to roll and how many times to roll it.
type Spec struct {
	Sides int
	Count int
}

// Roll captures the results for a single dice spec.
type Roll struct {
	Sides   int   `json:"sides"`
	Results []int `json:"results"`
	Total   int   `json:"total"`
}

// Result is the outcome of rolling several specs.
type Result struct {
	Rolls []Roll
	Total int
}
