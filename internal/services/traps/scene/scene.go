// Package scene holds positioned tokens and the actors behind them.
package scene

import (
	"context"
	"errors"
)

// FlagTrapID is the token flag linking a marker token to its trap.
const FlagTrapID = "trap-macros.trapId"

// Canvas defaults used when a scene leaves them unset, in pixels.
const (
	DefaultGrid = 100
	DefaultSize = 1000
)

var (
	// ErrTokenNotFound indicates no token has the requested id.
	ErrTokenNotFound = errors.New("token not found")
	// ErrActorNotFound indicates no actor has the requested id.
	ErrActorNotFound = errors.New("actor not found")
)

// Point is a canvas position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions describe the canvas: grid square size and total size, in pixels.
type Dimensions struct {
	Grid   float64 `json:"grid"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Token is a positioned entity. X/Y are pixels; Width/Height are grid squares.
type Token struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	X       float64           `json:"x"`
	Y       float64           `json:"y"`
	Width   float64           `json:"width"`
	Height  float64           `json:"height"`
	Image   string            `json:"img,omitempty"`
	Hidden  bool              `json:"hidden"`
	ActorID string            `json:"actorId,omitempty"`
	Owners  []string          `json:"owners,omitempty"`
	Flags   map[string]string `json:"flags,omitempty"`
}

// TrapID returns the trap linked through the token flag, if any.
func (t Token) TrapID() string {
	return t.Flags[FlagTrapID]
}

// Center returns the token's center in pixels for grid size.
func (t Token) Center(grid float64) Point {
	return Point{X: t.X + t.Width*grid/2, Y: t.Y + t.Height*grid/2}
}

// OwnedBy reports whether userID may control the token.
func (t Token) OwnedBy(userID string) bool {
	for _, owner := range t.Owners {
		if owner == userID {
			return true
		}
	}
	return false
}

// HP is an actor's hit point pool.
type HP struct {
	Value int `json:"value"`
	Max   int `json:"max"`
	Temp  int `json:"temp,omitempty"`
}

// Thresholds are damage thresholds for systems that mark HP by severity.
type Thresholds struct {
	Major  int `json:"major"`
	Severe int `json:"severe"`
}

// EffectChange is one attribute change carried by an active effect.
type EffectChange struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Mode  int    `json:"mode"`
}

// EffectDuration is the unit-qualified duration of an effect item.
type EffectDuration struct {
	Unit  string `json:"unit"`
	Value int    `json:"value"`
}

// Effect document kinds.
const (
	KindActiveEffect = "effect"
	KindEffectItem   = "effect-item"
	KindCondition    = "condition"
)

// ActiveEffect is a status applied to an actor. Active effects and
// conditions carry Label, Icon and Rounds; effect items carry Name, Img and
// Duration.
type ActiveEffect struct {
	Kind     string          `json:"kind,omitempty"`
	Label    string          `json:"label,omitempty"`
	Icon     string          `json:"icon,omitempty"`
	Rounds   int             `json:"rounds,omitempty"`
	Name     string          `json:"name,omitempty"`
	Img      string          `json:"img,omitempty"`
	Duration *EffectDuration `json:"duration,omitempty"`
	Origin   string          `json:"origin,omitempty"`
	Changes  []EffectChange  `json:"changes,omitempty"`
}

// Actor is the character sheet behind a token.
type Actor struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	HP          HP             `json:"hp"`
	Abilities   map[string]int `json:"abilities,omitempty"`
	Saves       map[string]int `json:"saves,omitempty"`
	Traits      map[string]int `json:"traits,omitempty"`
	Thresholds  Thresholds     `json:"thresholds,omitempty"`
	Resistances map[string]int `json:"resistances,omitempty"`
	Weaknesses  map[string]int `json:"weaknesses,omitempty"`
	Effects     []ActiveEffect `json:"effects,omitempty"`
}

// Tokens is the positioned-entity collaborator.
type Tokens interface {
	Dimensions() Dimensions
	Token(ctx context.Context, id string) (Token, error)
	Tokens(ctx context.Context) ([]Token, error)
	SetHidden(ctx context.Context, id string, hidden bool) error
	Move(ctx context.Context, id string, to Point) (Token, error)
	Create(ctx context.Context, token Token) (Token, error)
}

// Actors is the character-sheet collaborator.
type Actors interface {
	Actor(ctx context.Context, id string) (Actor, error)
	Update(ctx context.Context, actor Actor) error
}
