package ruleset

import (
	"context"
	"strings"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

var pf2eSaves = map[string]string{
	"con":       "fortitude",
	"dex":       "reflex",
	"wis":       "will",
	"fortitude": "fortitude",
	"reflex":    "reflex",
	"will":      "will",
}

// PF2e maps ability saves onto fortitude, reflex and will, and adjusts damage
// by weakness and resistance.
type PF2e struct{}

func (PF2e) ID() string { return "pf2e" }

// SaveName maps an ability or save name to the PF2e save, defaulting to
// reflex.
func (PF2e) SaveName(ability string) string {
	if save, ok := pf2eSaves[strings.ToLower(strings.TrimSpace(ability))]; ok {
		return save
	}
	return "reflex"
}

func (p PF2e) SaveRoll(actor scene.Actor, ability string) string {
	return formula("1d20", actor.Saves[p.SaveName(ability)])
}

// Adjust applies weakness (only when damage lands) then resistance.
func (PF2e) Adjust(actor scene.Actor, amount int, damageType string) int {
	if amount <= 0 {
		return 0
	}
	damageType = strings.ToLower(damageType)
	amount += actor.Weaknesses[damageType]
	amount -= actor.Resistances[damageType]
	return max(0, amount)
}

func (p PF2e) ApplyDamage(ctx context.Context, actors scene.Actors, actorID string, amount int, damageType string) error {
	if amount <= 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		actor.HP = absorb(actor.HP, p.Adjust(*actor, amount, damageType))
	})
}

// ApplyEffects adds one effect item per effect. Attribute changes are not
// carried over.
func (PF2e) ApplyEffects(ctx context.Context, actors scene.Actors, actorID string, effects []trap.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		for _, effect := range effects {
			actor.Effects = append(actor.Effects, scene.ActiveEffect{
				Kind:     scene.KindEffectItem,
				Name:     effect.Name,
				Img:      effect.Icon,
				Duration: &scene.EffectDuration{Unit: "rounds", Value: effect.Duration},
			})
		}
	})
}
