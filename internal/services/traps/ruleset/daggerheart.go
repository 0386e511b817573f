package ruleset

import (
	"context"
	"strings"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

var daggerheartTraits = map[string]string{
	"dex": "agility",
	"str": "strength",
	"con": "strength",
	"int": "knowledge",
	"wis": "instinct",
	"cha": "presence",
}

// DamageSeverity describes the severity tier of incoming damage.
type DamageSeverity int

const (
	DamageNone DamageSeverity = iota
	DamageMinor
	DamageMajor
	DamageSevere
)

// Daggerheart rolls duality dice plus a trait and marks HP by threshold.
type Daggerheart struct{}

func (Daggerheart) ID() string { return "daggerheart" }

// Trait maps an ability abbreviation to its trait, passing trait names
// through.
func (Daggerheart) Trait(ability string) string {
	key := strings.ToLower(strings.TrimSpace(ability))
	if trait, ok := daggerheartTraits[key]; ok {
		return trait
	}
	return key
}

func (d Daggerheart) SaveRoll(actor scene.Actor, ability string) string {
	return formula("2d12", actor.Traits[d.Trait(ability)])
}

// EvaluateDamage returns severity and HP marks for amount against thresholds.
func EvaluateDamage(amount int, thresholds scene.Thresholds) (DamageSeverity, int) {
	switch {
	case amount <= 0:
		return DamageNone, 0
	case thresholds.Severe > 0 && amount >= thresholds.Severe:
		return DamageSevere, 3
	case thresholds.Major > 0 && amount >= thresholds.Major:
		return DamageMajor, 2
	default:
		return DamageMinor, 1
	}
}

func (Daggerheart) ApplyDamage(ctx context.Context, actors scene.Actors, actorID string, amount int, _ string) error {
	if amount <= 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		_, marks := EvaluateDamage(amount, actor.Thresholds)
		actor.HP.Value = max(0, actor.HP.Value-marks)
	})
}

func (Daggerheart) ApplyEffects(ctx context.Context, actors scene.Actors, actorID string, effects []trap.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		for _, effect := range effects {
			actor.Effects = append(actor.Effects, scene.ActiveEffect{
				Label:  strings.ToLower(effect.Name),
				Icon:   effect.Icon,
				Rounds: effect.Duration,
				Kind:   scene.KindCondition,
			})
		}
	})
}
