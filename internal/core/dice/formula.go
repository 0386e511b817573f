package dice

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
)

const (
	maxDiceCount = 100
	maxDiceSides = 1000
)

// Term is one signed part of a formula: a dice group or a flat modifier.
type Term struct {
	Sign int
	Dice *Spec
	Flat int
}

// Formula is a parsed dice expression like "1d4 + 2" or "2d12".
type Formula struct {
	Source string
	Terms  []Term
}

// Outcome is the evaluation of a formula.
type Outcome struct {
	Formula  string `json:"formula"`
	Rolls    []Roll `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// ParseFormula parses sums and differences of NdM groups and integers.
// A missing count ("d20") means one die.
func ParseFormula(source string) (Formula, error) {
	compact := strings.ToLower(strings.Join(strings.Fields(source), ""))
	if compact == "" {
		return Formula{}, invalidFormula(source, "empty formula")
	}

	formula := Formula{Source: strings.TrimSpace(source)}
	sign := 1
	start := 0
	for i := 0; i <= len(compact); i++ {
		if i < len(compact) && compact[i] != '+' && compact[i] != '-' {
			continue
		}
		token := compact[start:i]
		if token == "" {
			// Leading sign is allowed once; "1d4++2" is not.
			if i != 0 || i == len(compact) {
				return Formula{}, invalidFormula(source, "dangling operator")
			}
		} else {
			term, err := parseTerm(token)
			if err != nil {
				return Formula{}, invalidFormula(source, err.Error())
			}
			term.Sign = sign
			formula.Terms = append(formula.Terms, term)
		}
		if i < len(compact) {
			sign = 1
			if compact[i] == '-' {
				sign = -1
			}
		}
		start = i + 1
	}
	return formula, nil
}

func parseTerm(token string) (Term, error) {
	countText, sidesText, isDice := strings.Cut(token, "d")
	if !isDice {
		flat, err := strconv.Atoi(token)
		if err != nil {
			return Term{}, fmt.Errorf("bad modifier %q", token)
		}
		return Term{Flat: flat}, nil
	}

	count := 1
	if countText != "" {
		parsed, err := strconv.Atoi(countText)
		if err != nil {
			return Term{}, fmt.Errorf("bad dice count %q", countText)
		}
		count = parsed
	}
	sides, err := strconv.Atoi(sidesText)
	if err != nil {
		return Term{}, fmt.Errorf("bad dice sides %q", sidesText)
	}
	if count <= 0 || sides <= 0 || count > maxDiceCount || sides > maxDiceSides {
		return Term{}, fmt.Errorf("dice %q out of range", token)
	}
	return Term{Dice: &Spec{Sides: sides, Count: count}}, nil
}

// Specs returns the dice groups of the formula in order.
func (f Formula) Specs() []Spec {
	var out []Spec
	for _, term := range f.Terms {
		if term.Dice != nil {
			out = append(out, *term.Dice)
		}
	}
	return out
}

// Roll evaluates the formula once with rng. Subtracted groups carry a
// negative Total.
func (f Formula) Roll(rng *rand.Rand) Outcome {
	outcome := Outcome{Formula: f.Source}
	var signs []int
	for _, term := range f.Terms {
		if term.Dice == nil {
			outcome.Modifier += term.Sign * term.Flat
			continue
		}
		signs = append(signs, term.Sign)
	}
	if len(signs) > 0 {
		// ParseFormula already bounded every group.
		result, _ := RollWithRng(rng, f.Specs())
		for i, roll := range result.Rolls {
			roll.Total *= signs[i]
			outcome.Rolls = append(outcome.Rolls, roll)
			outcome.Total += roll.Total
		}
	}
	outcome.Total += outcome.Modifier
	return outcome
}

func invalidFormula(source, reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeDiceInvalidFormula,
		fmt.Sprintf("parse dice formula %q: %s", source, reason),
		map[string]string{"Formula": source},
	)
}
