// Package engine resolves a trap trigger: lookup, target and actor checks,
// commit, reveal, announcement, damage, saving throw, effects and the
// archetype broadcast.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/louisbranch/trapmacros/internal/core/check"
	"github.com/louisbranch/trapmacros/internal/core/dice"
	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	platformotel "github.com/louisbranch/trapmacros/internal/platform/otel"
	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trigger"
	"github.com/louisbranch/trapmacros/internal/services/traps/handlers"
	"github.com/louisbranch/trapmacros/internal/services/traps/registry"
	"github.com/louisbranch/trapmacros/internal/services/traps/ruleset"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxSuggestionDistance bounds "did you mean" lookups for unknown ids.
const maxSuggestionDistance = 3

// Request names the trap to fire and who it fires on. TargetID wins over
// Selected; an unknown TargetID does not fall back to the selection.
type Request struct {
	TrapID   string   `json:"trapId"`
	TargetID string   `json:"tokenId,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

// Publisher receives archetype broadcasts.
type Publisher interface {
	Publish(ctx context.Context, ev handlers.Event)
}

// FlagLoader reads user flags.
type FlagLoader interface {
	Load(ctx context.Context) (settings.Values, error)
}

// Deps are the collaborators of an Engine. Ruleset defaults to generic;
// Archetypes defaults to the built-in archetype tags.
type Deps struct {
	Registry   *registry.Registry
	Tokens     scene.Tokens
	Actors     scene.Actors
	Roller     dice.Roller
	Log        chat.Log
	Narrator   *chat.Narrator
	Flags      FlagLoader
	Ruleset    ruleset.Strategy
	Events     Publisher
	Archetypes []string
}

// Engine runs the trigger pipeline.
type Engine struct {
	deps   Deps
	tracer trace.Tracer
}

// New builds an engine.
func New(deps Deps) *Engine {
	if deps.Ruleset == nil {
		deps.Ruleset = ruleset.Generic{}
	}
	if deps.Narrator == nil {
		deps.Narrator = chat.NewNarrator("")
	}
	if len(deps.Archetypes) == 0 {
		deps.Archetypes = archetype.Names()
	}
	return &Engine{deps: deps, tracer: platformotel.Tracer("traps/engine")}
}

// Trigger resolves one trap against one target.
//
// Lookup, spent, busy, target and actor failures come back as unsuccessful
// results with a nil error and no side effects. From the commit on, ctx
// cancellation is ignored; collaborator failures are logged and returned as
// an error with the partial result, and the registry is never rolled back.
func (e *Engine) Trigger(ctx context.Context, req Request) (trap.Result, error) {
	ctx, span := e.tracer.Start(ctx, "trap.trigger", trace.WithAttributes(attribute.String("trap.id", req.TrapID)))
	defer span.End()

	res, err := e.trigger(ctx, span, req)
	span.SetAttributes(attribute.Bool("trap.success", res.Success))
	if res.Code != "" {
		span.SetAttributes(attribute.String("trap.code", string(res.Code)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("trigger trap %s: %v", req.TrapID, err)
	}
	return res, err
}

func (e *Engine) trigger(ctx context.Context, span trace.Span, req Request) (trap.Result, error) {
	n := e.deps.Narrator
	trapID := strings.TrimSpace(req.TrapID)

	def, ok := e.deps.Registry.Get(trapID)
	if !ok {
		msg := n.Text("traps.result.not_found", trapID)
		if suggestion, found := e.deps.Registry.Suggest(trapID, maxSuggestionDistance); found {
			msg = n.Text("traps.result.not_found_suggest", trapID, suggestion)
		}
		return trap.Failure(apperrors.CodeTrapNotFound, msg), nil
	}
	if def.OneTimeUse && def.Triggered {
		return trap.Failure(apperrors.CodeTrapAlreadyTriggered, n.Text("traps.result.already_triggered", def.Name)), nil
	}

	release, ok := e.deps.Registry.Acquire(def.ID)
	if !ok {
		return trap.Failure(apperrors.CodeTrapBusy, n.Text("traps.result.busy", def.Name)), nil
	}
	defer release()
	// Another caller may have fired the trap between Get and Acquire.
	if def, ok = e.deps.Registry.Get(def.ID); !ok {
		return trap.Failure(apperrors.CodeTrapNotFound, n.Text("traps.result.not_found", trapID)), nil
	}
	if def.OneTimeUse && def.Triggered {
		return trap.Failure(apperrors.CodeTrapAlreadyTriggered, n.Text("traps.result.already_triggered", def.Name)), nil
	}

	token, found, err := e.resolveTarget(ctx, req)
	if err != nil {
		return trap.Failure(apperrors.CodeTrapNoTarget, n.Text("traps.result.no_target")), err
	}
	if !found {
		return trap.Failure(apperrors.CodeTrapNoTarget, n.Text("traps.result.no_target")), nil
	}
	actor, found, err := e.resolveActor(ctx, token)
	if err != nil {
		return trap.Failure(apperrors.CodeTrapNoActor, n.Text("traps.result.no_actor")), err
	}
	if !found {
		return trap.Failure(apperrors.CodeTrapNoActor, n.Text("traps.result.no_actor")), nil
	}
	span.AddEvent("target.resolved", trace.WithAttributes(attribute.String("token.id", token.ID), attribute.String("actor.id", actor.ID)))

	// Past this point the trigger runs to completion even if the caller goes
	// away.
	ctx = context.WithoutCancel(ctx)

	partial := trap.Result{Success: false}
	if def.OneTimeUse {
		if err := e.deps.Registry.MarkTriggered(ctx, def.ID); err != nil {
			return e.partialFailure(partial, fmt.Errorf("mark %s triggered: %w", def.ID, err))
		}
		def.Triggered = true
		span.AddEvent("trap.committed")
	}

	flags := e.loadFlags(ctx)
	if flags.AutoRevealTraps {
		if err := e.reveal(ctx, def, token.ID); err != nil {
			return e.partialFailure(partial, err)
		}
		span.AddEvent("trap.revealed")
	}

	if err := e.deps.Log.Post(ctx, n.Announce(def.Name, def.Description, actor.Name)); err != nil {
		return e.partialFailure(partial, fmt.Errorf("announce: %w", err))
	}

	raw := 0
	if def.Damage != nil && strings.TrimSpace(def.Damage.Formula) != "" {
		outcome, err := e.deps.Roller.Roll(ctx, def.Damage.Formula)
		if err != nil {
			return e.partialFailure(partial, fmt.Errorf("roll damage: %w", err))
		}
		raw = max(0, outcome.Total)
		flavor := n.DamageFlavor(def.Damage.Type, def.Name)
		if err := e.deps.Log.Post(ctx, chat.Message{
			Content: strconv.Itoa(raw),
			Speaker: def.Name,
			Kind:    chat.KindRoll,
			Flavor:  flavor,
			Roll:    &outcome,
		}); err != nil {
			return e.partialFailure(partial, fmt.Errorf("publish damage roll: %w", err))
		}
		span.AddEvent("damage.rolled", trace.WithAttributes(attribute.Int("damage.raw", raw)))
	}

	damage := raw
	saveSuccess := false
	if save := def.SavingThrow; save != nil {
		formula := e.deps.Ruleset.SaveRoll(actor, save.Type)
		outcome, err := e.deps.Roller.Roll(ctx, formula)
		if err != nil {
			return e.partialFailure(partial, fmt.Errorf("roll save: %w", err))
		}
		verdict := check.Check(outcome.Total, save.DC)
		saveSuccess = verdict.Success
		damage = check.ScaleDamage(raw, save.Multiplier(saveSuccess))
		partial.SavingThrowResult = &trap.SaveResult{Roll: outcome.Total, DC: save.DC, Success: saveSuccess}
		partial.Damage = trap.Int(damage)

		msg := n.SaveOutcome(def.Name, actor.Name, save.DC, save.Type, outcome.Total, saveSuccess, damage)
		msg.Roll = &outcome
		if err := e.deps.Log.Post(ctx, msg); err != nil {
			return e.partialFailure(partial, fmt.Errorf("publish save: %w", err))
		}
		span.AddEvent("save.rolled", trace.WithAttributes(
			attribute.Int("save.roll", outcome.Total),
			attribute.Bool("save.success", saveSuccess),
			attribute.Int("save.margin", verdict.Margin),
		))
	}
	partial.Damage = trap.Int(damage)

	if damage > 0 {
		damageType := ""
		if def.Damage != nil {
			damageType = def.Damage.Type
		}
		if err := e.deps.Ruleset.ApplyDamage(ctx, e.deps.Actors, actor.ID, damage, damageType); err != nil {
			return e.partialFailure(partial, fmt.Errorf("apply damage: %w", err))
		}
		span.AddEvent("damage.applied", trace.WithAttributes(attribute.Int("damage.applied", damage)))
	}

	if len(def.Effects) > 0 {
		if err := e.deps.Ruleset.ApplyEffects(ctx, e.deps.Actors, actor.ID, def.Effects); err != nil {
			return e.partialFailure(partial, fmt.Errorf("apply effects: %w", err))
		}
		span.AddEvent("effects.applied")
	}

	if e.deps.Events != nil {
		if tag, ok := archetype.Of(def, e.deps.Archetypes); ok {
			e.deps.Events.Publish(ctx, handlers.NewEvent(tag, def, token, actor, damage, saveSuccess))
			span.AddEvent("event.published", trace.WithAttributes(attribute.String("trap.archetype", tag)))
		}
	}

	partial.Success = true
	partial.Message = n.Text("traps.result.triggered", def.Name, actor.Name)
	return partial, nil
}

func (e *Engine) partialFailure(res trap.Result, err error) (trap.Result, error) {
	res.Success = false
	res.Message = err.Error()
	return res, err
}

// resolveTarget picks the explicit target, else the first selected token.
func (e *Engine) resolveTarget(ctx context.Context, req Request) (scene.Token, bool, error) {
	candidate := strings.TrimSpace(req.TargetID)
	if candidate == "" && len(req.Selected) > 0 {
		candidate = strings.TrimSpace(req.Selected[0])
	}
	if candidate == "" {
		return scene.Token{}, false, nil
	}
	token, err := e.deps.Tokens.Token(ctx, candidate)
	if errors.Is(err, scene.ErrTokenNotFound) {
		return scene.Token{}, false, nil
	}
	if err != nil {
		return scene.Token{}, false, fmt.Errorf("resolve target %s: %w", candidate, err)
	}
	return token, true, nil
}

func (e *Engine) resolveActor(ctx context.Context, token scene.Token) (scene.Actor, bool, error) {
	if strings.TrimSpace(token.ActorID) == "" {
		return scene.Actor{}, false, nil
	}
	actor, err := e.deps.Actors.Actor(ctx, token.ActorID)
	if errors.Is(err, scene.ErrActorNotFound) {
		return scene.Actor{}, false, nil
	}
	if err != nil {
		return scene.Actor{}, false, fmt.Errorf("resolve actor %s: %w", token.ActorID, err)
	}
	return actor, true, nil
}

// reveal unhides the trap's marker and flips visible once. A trap without a
// marker only has its flag flipped.
func (e *Engine) reveal(ctx context.Context, def trap.Definition, targetID string) error {
	tokens, err := e.deps.Tokens.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if marker, ok := trigger.FindMarker(def.ID, tokens, targetID); ok && marker.Hidden {
		if err := e.deps.Tokens.SetHidden(ctx, marker.ID, false); err != nil {
			return fmt.Errorf("reveal marker %s: %w", marker.ID, err)
		}
	}
	if _, err := e.deps.Registry.MarkRevealed(ctx, def.ID); err != nil {
		return fmt.Errorf("mark %s revealed: %w", def.ID, err)
	}
	return nil
}

func (e *Engine) loadFlags(ctx context.Context) settings.Values {
	if e.deps.Flags == nil {
		return settings.Defaults()
	}
	values, err := e.deps.Flags.Load(ctx)
	if err != nil {
		log.Printf("load trap flags: %v; using defaults", err)
		return settings.Defaults()
	}
	return values
}
