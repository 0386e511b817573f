// Package api is the host-side handle on the trap registry: registration,
// lookups, archetype factories, placement and triggering. Registry mutations
// and triggers run on the session queue so the process has a single mutator.
package api

import (
	"context"
	"fmt"
	"log"
	"math"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trigger"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/registry"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/louisbranch/trapmacros/internal/services/traps/session"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
)

// Triggerer runs the trigger pipeline.
type Triggerer interface {
	Trigger(ctx context.Context, req engine.Request) (trap.Result, error)
}

// FlagStore reads and writes user flags.
type FlagStore interface {
	Load(ctx context.Context) (settings.Values, error)
	Set(ctx context.Context, key, value string) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Registry *registry.Registry
	Engine   Triggerer
	Queue    *session.Queue
	Tokens   scene.Tokens
	Flags    FlagStore
	Log      chat.Log
	Narrator *chat.Narrator
}

// Service implements the registry handle and the participant controller.
type Service struct {
	deps Deps
}

var _ session.Controller = (*Service)(nil)

// New builds a service.
func New(deps Deps) *Service {
	if deps.Narrator == nil {
		deps.Narrator = chat.NewNarrator("")
	}
	return &Service{deps: deps}
}

// RegisterTrap inserts or replaces def and persists the set.
func (s *Service) RegisterTrap(ctx context.Context, def trap.Definition) error {
	_, err := session.Submit(ctx, s.deps.Queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.deps.Registry.Register(ctx, def)
	})
	return err
}

// GetTrap returns the trap with trapID.
func (s *Service) GetTrap(trapID string) (trap.Definition, error) {
	def, ok := s.deps.Registry.Get(trapID)
	if !ok {
		return trap.Definition{}, apperrors.WithMetadata(
			apperrors.CodeTrapNotFound,
			fmt.Sprintf("trap %s not found", trapID),
			map[string]string{"TrapID": trapID},
		)
	}
	return def, nil
}

// GetTraps returns a copy of the registry keyed by id.
func (s *Service) GetTraps() map[string]trap.Definition {
	return s.deps.Registry.All()
}

// ListTraps returns every trap in id order.
func (s *Service) ListTraps(context.Context) []trap.Definition {
	return s.deps.Registry.List()
}

// TriggerTrap fires one trap through the queue.
func (s *Service) TriggerTrap(ctx context.Context, req engine.Request) (trap.Result, error) {
	return session.Submit(ctx, s.deps.Queue, func(ctx context.Context) (trap.Result, error) {
		return s.deps.Engine.Trigger(ctx, req)
	})
}

// CreateIcePitTrap builds an ice pit definition without registering it.
func (s *Service) CreateIcePitTrap(opts archetype.Options) (trap.Definition, error) {
	return archetype.NewIcePit(opts)
}

// CreatePressureDartTrap builds a pressure dart definition without
// registering it.
func (s *Service) CreatePressureDartTrap(opts archetype.Options) (trap.Definition, error) {
	return archetype.NewPressureDart(opts)
}

// CreateTrap builds a definition for any known archetype.
func (s *Service) CreateTrap(tag string, opts archetype.Options) (trap.Definition, error) {
	return archetype.Create(tag, opts)
}

// PlaceTrap builds, registers and marks a trap on the scene: a hidden one
// square token flagged with the trap id, snapped to the grid at at.
func (s *Service) PlaceTrap(ctx context.Context, tag string, opts archetype.Options, at scene.Point) (trap.Definition, error) {
	def, err := archetype.Create(tag, opts)
	if err != nil {
		return trap.Definition{}, err
	}
	return session.Submit(ctx, s.deps.Queue, func(ctx context.Context) (trap.Definition, error) {
		if err := s.deps.Registry.Register(ctx, def); err != nil {
			return trap.Definition{}, err
		}
		pos := Snap(at, s.deps.Tokens.Dimensions().Grid)
		marker := scene.Token{
			Name:   def.ID,
			X:      pos.X,
			Y:      pos.Y,
			Width:  1,
			Height: 1,
			Image:  def.TokenImagePath,
			Hidden: true,
			Flags:  map[string]string{scene.FlagTrapID: def.ID},
		}
		if _, err := s.deps.Tokens.Create(ctx, marker); err != nil {
			return def, fmt.Errorf("create marker for %s: %w", def.ID, err)
		}
		s.notify(ctx, chat.Message{
			Content: s.deps.Narrator.Text("traps.placed", def.Name),
			Whisper: []string{chat.WhisperGM},
			Kind:    chat.KindNotice,
		})
		return def, nil
	})
}

// Token returns one scene token.
func (s *Service) Token(ctx context.Context, tokenID string) (scene.Token, error) {
	return s.deps.Tokens.Token(ctx, tokenID)
}

// MoveToken moves a token and fires every trap it sets off, in id order,
// with the mover as the target. Trigger failures are reported through the
// results; only the move itself can fail the call.
func (s *Service) MoveToken(ctx context.Context, tokenID string, to scene.Point) (scene.Token, []trap.Result, error) {
	type moved struct {
		token   scene.Token
		results []trap.Result
	}
	out, err := session.Submit(ctx, s.deps.Queue, func(ctx context.Context) (moved, error) {
		token, err := s.deps.Tokens.Move(ctx, tokenID, to)
		if err != nil {
			return moved{}, err
		}
		ids, err := s.triggeredBy(ctx, token, to)
		if err != nil {
			log.Printf("evaluate triggers for %s: %v", tokenID, err)
			return moved{token: token}, nil
		}
		var results []trap.Result
		for _, trapID := range ids {
			res, err := s.deps.Engine.Trigger(ctx, engine.Request{TrapID: trapID, TargetID: token.ID})
			if err != nil && res.Message == "" {
				res = trap.Failure(apperrors.CodeOf(err), err.Error())
			}
			results = append(results, res)
		}
		return moved{token: token, results: results}, nil
	})
	return out.token, out.results, err
}

// SetFlag stores one user flag.
func (s *Service) SetFlag(ctx context.Context, key, value string) error {
	return s.deps.Flags.Set(ctx, key, value)
}

// Flags returns the current user flags.
func (s *Service) Flags(ctx context.Context) (settings.Values, error) {
	return s.deps.Flags.Load(ctx)
}

func (s *Service) triggeredBy(ctx context.Context, mover scene.Token, to scene.Point) ([]string, error) {
	values, err := s.deps.Flags.Load(ctx)
	if err != nil {
		log.Printf("load flags: %v", err)
		values = settings.Defaults()
	}
	markers, err := s.deps.Tokens.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	eval := trigger.Evaluator{
		Grid:              s.deps.Tokens.Dimensions().Grid,
		Proximity:         values.EnableProximityTriggers,
		ProximityDistance: values.ProximityDistance,
	}
	return eval.FindTriggered(mover, to, s.deps.Registry.List(), markers), nil
}

func (s *Service) notify(ctx context.Context, msg chat.Message) {
	if s.deps.Log == nil {
		return
	}
	if err := s.deps.Log.Post(ctx, msg); err != nil {
		log.Printf("post notice: %v", err)
	}
}

// Snap rounds p to the nearest grid intersection.
func Snap(p scene.Point, grid float64) scene.Point {
	if grid <= 0 {
		return p
	}
	return scene.Point{
		X: math.Round(p.X/grid) * grid,
		Y: math.Round(p.Y/grid) * grid,
	}
}
