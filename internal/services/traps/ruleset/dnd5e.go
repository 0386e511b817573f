package ruleset

import (
	"context"
	"strings"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// DnD5e rolls d20 plus the ability's save bonus and burns temp HP first.
type DnD5e struct{}

func (DnD5e) ID() string { return "dnd5e" }

func (DnD5e) SaveRoll(actor scene.Actor, ability string) string {
	return formula("1d20", actor.Abilities[strings.ToLower(ability)])
}

func (DnD5e) ApplyDamage(ctx context.Context, actors scene.Actors, actorID string, amount int, _ string) error {
	if amount <= 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		actor.HP = absorb(actor.HP, amount)
	})
}

func (DnD5e) ApplyEffects(ctx context.Context, actors scene.Actors, actorID string, effects []trap.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		for _, effect := range effects {
			actor.Effects = append(actor.Effects, scene.ActiveEffect{
				Label:   effect.Name,
				Icon:    effect.Icon,
				Rounds:  effect.Duration,
				Kind:    scene.KindActiveEffect,
				Changes: toChanges(effect.Changes),
			})
		}
	})
}
