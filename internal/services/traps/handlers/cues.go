package handlers

import (
	"context"

	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// CueKind selects how participants render a cue.
type CueKind string

const (
	CueAnimation     CueKind = "animation"
	CueScrollingText CueKind = "scrolling-text"
	CueProjectile    CueKind = "projectile"
)

// Cue is a cosmetic scene effect broadcast to participants.
type Cue struct {
	Kind      CueKind      `json:"kind"`
	Name      string       `json:"name,omitempty"`
	Text      string       `json:"text,omitempty"`
	Color     string       `json:"color,omitempty"`
	At        scene.Point  `json:"at"`
	From      *scene.Point `json:"from,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Scale     float64      `json:"scale,omitempty"`
	DelayMS   int          `json:"delayMs,omitempty"`
}

// Cues delivers scene effects.
type Cues interface {
	Cue(ctx context.Context, cue Cue) error
}

// Flags is the subset of user settings handlers read.
type Flags interface {
	EffectsLibrary(ctx context.Context) bool
}
