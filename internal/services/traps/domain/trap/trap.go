// Package trap defines trap definitions and trigger results.
package trap

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
)

// TriggerType is how a trap fires.
type TriggerType string

const (
	TriggerStep      TriggerType = "step"
	TriggerInteract  TriggerType = "interact"
	TriggerProximity TriggerType = "proximity"
	TriggerTimer     TriggerType = "timer"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerStep, TriggerInteract, TriggerProximity, TriggerTimer:
		return true
	}
	return false
}

const (
	// DefaultSuccessMultiplier scales damage on a successful save when unset.
	DefaultSuccessMultiplier = 0.5
	// DefaultFailureMultiplier scales damage on a failed save when unset.
	DefaultFailureMultiplier = 1.0
)

// SavingThrow is the save a victim makes against the trap.
type SavingThrow struct {
	Type              string   `json:"type" jsonschema:"description=Ability the save uses (dex, con, wis...)"`
	DC                int      `json:"dc"`
	SuccessMultiplier *float64 `json:"successMultiplier,omitempty"`
	FailureMultiplier *float64 `json:"failureMultiplier,omitempty"`
}

// Multiplier returns the damage multiplier for a save outcome, applying the
// defaults when unset.
func (s SavingThrow) Multiplier(success bool) float64 {
	if success {
		if s.SuccessMultiplier != nil {
			return *s.SuccessMultiplier
		}
		return DefaultSuccessMultiplier
	}
	if s.FailureMultiplier != nil {
		return *s.FailureMultiplier
	}
	return DefaultFailureMultiplier
}

// Damage is a dice formula and damage type.
type Damage struct {
	Formula string `json:"formula"`
	Type    string `json:"type"`
}

// Change is one attribute change an effect applies.
type Change struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Mode  int    `json:"mode"`
}

// Effect is a status effect applied to the victim.
type Effect struct {
	Name     string   `json:"name"`
	Duration int      `json:"duration" jsonschema:"description=Duration in combat rounds"`
	Icon     string   `json:"icon"`
	Changes  []Change `json:"changes,omitempty"`
}

// Definition is a trap as stored in the registry and the persisted blob.
type Definition struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Archetype      string       `json:"archetype,omitempty"`
	TriggerType    TriggerType  `json:"triggerType"`
	Visible        bool         `json:"visible"`
	SavingThrow    *SavingThrow `json:"savingThrow,omitempty"`
	Damage         *Damage      `json:"damage,omitempty"`
	Effects        []Effect     `json:"effects,omitempty"`
	TokenImagePath string       `json:"tokenImagePath,omitempty"`
	DetectionDC    *int         `json:"detectionDC,omitempty"`
	DisarmDC       *int         `json:"disarmDC,omitempty"`
	OneTimeUse     bool         `json:"oneTimeUse"`
	Triggered      bool         `json:"triggered"`
}

// Validate checks the fields the registry relies on.
func (d Definition) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return invalid("id is required")
	case strings.TrimSpace(d.Name) == "":
		return invalid("name is required")
	case !d.TriggerType.Valid():
		return invalid(fmt.Sprintf("unknown trigger type %q", d.TriggerType))
	case d.Damage != nil && strings.TrimSpace(d.Damage.Formula) == "":
		return invalid("damage formula is required")
	}
	for _, effect := range d.Effects {
		if strings.TrimSpace(effect.Name) == "" {
			return invalid("effect name is required")
		}
		if effect.Duration < 0 {
			return invalid(fmt.Sprintf("effect %s has negative duration", effect.Name))
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate registry state through
// shared pointers or slices.
func (d Definition) Clone() Definition {
	out := d
	if d.SavingThrow != nil {
		st := *d.SavingThrow
		if st.SuccessMultiplier != nil {
			v := *st.SuccessMultiplier
			st.SuccessMultiplier = &v
		}
		if st.FailureMultiplier != nil {
			v := *st.FailureMultiplier
			st.FailureMultiplier = &v
		}
		out.SavingThrow = &st
	}
	if d.Damage != nil {
		dmg := *d.Damage
		out.Damage = &dmg
	}
	if d.Effects != nil {
		out.Effects = make([]Effect, len(d.Effects))
		for i, effect := range d.Effects {
			out.Effects[i] = effect
			if effect.Changes != nil {
				out.Effects[i].Changes = append([]Change(nil), effect.Changes...)
			}
		}
	}
	if d.DetectionDC != nil {
		v := *d.DetectionDC
		out.DetectionDC = &v
	}
	if d.DisarmDC != nil {
		v := *d.DisarmDC
		out.DisarmDC = &v
	}
	return out
}

// HasEffect reports whether the trap applies an effect with name.
func (d Definition) HasEffect(name string) bool {
	for _, effect := range d.Effects {
		if strings.EqualFold(effect.Name, name) {
			return true
		}
	}
	return false
}

// SaveResult is the outcome of the victim's saving throw.
type SaveResult struct {
	Roll    int  `json:"roll"`
	DC      int  `json:"dc"`
	Success bool `json:"success"`
}

// Result is returned by every trigger attempt. Never persisted.
type Result struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	Code              apperrors.Code `json:"code,omitempty"`
	Damage            *int           `json:"damage,omitempty"`
	SavingThrowResult *SaveResult    `json:"savingThrowResult,omitempty"`
}

// Failure builds a pre-condition failure result.
func Failure(code apperrors.Code, message string) Result {
	return Result{Success: false, Code: code, Message: message}
}

// Float returns a pointer to v, for multipliers.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional DCs.
func Int(v int) *int { return &v }

func invalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeTrapInvalidDefinition, "invalid trap definition: "+reason, map[string]string{"Reason": reason})
}
