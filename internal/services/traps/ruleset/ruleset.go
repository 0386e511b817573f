// Package ruleset adapts saving throws, damage and status effects to the game
// system an actor sheet follows.
package ruleset

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// Strategy is one game system's rules for resolving a trap on an actor.
type Strategy interface {
	ID() string
	// SaveRoll returns the dice formula for the actor's save with ability.
	SaveRoll(actor scene.Actor, ability string) string
	ApplyDamage(ctx context.Context, actors scene.Actors, actorID string, amount int, damageType string) error
	ApplyEffects(ctx context.Context, actors scene.Actors, actorID string, effects []trap.Effect) error
}

// Registry maps system ids to strategies with a generic fallback.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry returns a registry holding the built-in systems.
func NewRegistry() *Registry {
	r := &Registry{strategies: map[string]Strategy{}, fallback: Generic{}}
	for _, strategy := range []Strategy{Generic{}, DnD5e{}, PF2e{}, Daggerheart{}} {
		r.Register(strategy)
	}
	return r
}

// Register adds or replaces a strategy by its id.
func (r *Registry) Register(strategy Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[normalize(strategy.ID())] = strategy
}

// Resolve returns the strategy for id, or the generic fallback.
func (r *Registry) Resolve(id string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if strategy, ok := r.strategies[normalize(id)]; ok {
		return strategy
	}
	return r.fallback
}

// IDs lists registered system ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// formula renders dice plus a signed bonus: "1d20 + 3", "1d20 - 1", "1d20".
func formula(dice string, bonus int) string {
	switch {
	case bonus > 0:
		return fmt.Sprintf("%s + %d", dice, bonus)
	case bonus < 0:
		return fmt.Sprintf("%s - %d", dice, -bonus)
	default:
		return dice
	}
}

// absorb takes amount from temp HP first, then from value, flooring at zero.
func absorb(hp scene.HP, amount int) scene.HP {
	if amount <= 0 {
		return hp
	}
	if hp.Temp > 0 {
		used := min(hp.Temp, amount)
		hp.Temp -= used
		amount -= used
	}
	hp.Value = max(0, hp.Value-amount)
	return hp
}

func updateActor(ctx context.Context, actors scene.Actors, actorID string, fn func(*scene.Actor)) error {
	actor, err := actors.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	fn(&actor)
	if err := actors.Update(ctx, actor); err != nil {
		return fmt.Errorf("update actor %s: %w", actorID, err)
	}
	return nil
}

func toChanges(changes []trap.Change) []scene.EffectChange {
	if len(changes) == 0 {
		return nil
	}
	out := make([]scene.EffectChange, len(changes))
	for i, change := range changes {
		out[i] = scene.EffectChange{Key: change.Key, Value: change.Value, Mode: change.Mode}
	}
	return out
}
