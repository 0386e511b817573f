package ruleset

import (
	"context"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// Generic is the fallback for unknown systems: a flat d20 save, plain HP
// loss and no effects.
type Generic struct{}

func (Generic) ID() string { return "generic" }

func (Generic) SaveRoll(scene.Actor, string) string { return "1d20" }

func (Generic) ApplyDamage(ctx context.Context, actors scene.Actors, actorID string, amount int, _ string) error {
	if amount <= 0 {
		return nil
	}
	return updateActor(ctx, actors, actorID, func(actor *scene.Actor) {
		actor.HP.Value = max(0, actor.HP.Value-amount)
	})
}

func (Generic) ApplyEffects(context.Context, scene.Actors, string, []trap.Effect) error {
	return nil
}
