package handlers

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/louisbranch/trapmacros/internal/services/traps/scheduler"
)

const (
	pressureDartProjectile = "dart"
	pressureDartImpact     = "impact"
	// dartRangeSquares is how far from the victim the dart starts.
	dartRangeSquares = 12

	MinResetDelay = 8 * time.Second
	MaxResetDelay = 15 * time.Second
)

// Scheduler defers the reset notice.
type Scheduler interface {
	After(delay time.Duration, task scheduler.Task) (cancel func())
}

// PressureDart presents a resolved pressure dart: a dart fired from the
// nearest scene edge, a hit or dodge cue, a flavored message and, for
// reusable traps, a reset notice whispered to game masters.
type PressureDart struct {
	Log       chat.Log
	Cues      Cues
	Flags     Flags
	Narrator  *chat.Narrator
	Scene     scene.Tokens
	Scheduler Scheduler
	// ResetDelay picks the reset notice delay; nil draws from
	// [MinResetDelay, MaxResetDelay].
	ResetDelay func() time.Duration
}

// Handle implements Handler.
func (h PressureDart) Handle(ctx context.Context, ev Event) error {
	dims := scene.Dimensions{Grid: scene.DefaultGrid, Width: scene.DefaultSize, Height: scene.DefaultSize}
	if h.Scene != nil {
		dims = h.Scene.Dimensions()
	}
	grid := gridOf(h.Scene)
	center := ev.Token.Center(grid)
	direction := DartDirection(center, dims)

	if h.Cues != nil {
		for _, cue := range h.cues(ctx, center, direction, grid, ev.SaveSuccess) {
			if err := h.Cues.Cue(ctx, cue); err != nil {
				log.Printf("pressure dart cue for trap %s: %v", ev.Trap.ID, err)
			}
		}
	}

	lines := []string{h.Narrator.Text("traps.pressure_dart.fire", ev.Actor.Name)}
	switch {
	case ev.SaveSuccess:
		lines = append(lines, h.Narrator.Text("traps.pressure_dart.dodged", ev.Actor.Name))
	case ev.Trap.HasEffect("Poisoned"):
		lines = append(lines, h.Narrator.Text("traps.pressure_dart.hit_poisoned", ev.Actor.Name, ev.Damage))
	default:
		lines = append(lines, h.Narrator.Text("traps.pressure_dart.hit", ev.Actor.Name, ev.Damage))
	}
	if err := h.Log.Post(ctx, chat.Message{
		Title:   h.Narrator.Text("traps.pressure_dart.title"),
		Content: strings.Join(lines, "\n"),
		Speaker: ev.Trap.Name,
		Kind:    chat.KindFlavor,
	}); err != nil {
		return fmt.Errorf("post pressure dart message: %w", err)
	}
	log.Printf("Pressure Dart trap triggered on %s", ev.Actor.Name)

	if !ev.Trap.OneTimeUse && h.Scheduler != nil {
		h.scheduleReset(ev.Trap.Name)
	}
	return nil
}

func (h PressureDart) cues(ctx context.Context, center scene.Point, direction string, grid float64, dodged bool) []Cue {
	if h.Flags == nil || !h.Flags.EffectsLibrary(ctx) {
		text, color := h.Narrator.Text("traps.pressure_dart.cue_hit"), "#ff8888"
		if dodged {
			text, color = h.Narrator.Text("traps.pressure_dart.cue_dodge"), "#88ff88"
		}
		return []Cue{{Kind: CueScrollingText, Text: text, Color: color, At: center}}
	}

	from := DartOrigin(center, direction, dartRangeSquares*grid)
	cues := []Cue{{Kind: CueProjectile, Name: pressureDartProjectile, At: center, From: &from, Direction: direction}}
	if !dodged {
		cues = append(cues, Cue{Kind: CueAnimation, Name: pressureDartImpact, At: center, Scale: 0.5, DelayMS: 500})
	}
	return cues
}

func (h PressureDart) scheduleReset(trapName string) {
	delay := h.resetDelay()
	notice := chat.Message{
		Content: h.Narrator.Text("traps.pressure_dart.reset"),
		Speaker: trapName,
		Whisper: []string{chat.WhisperGM},
		Kind:    chat.KindNotice,
	}
	h.Scheduler.After(delay, func(ctx context.Context) {
		if err := h.Log.Post(ctx, notice); err != nil {
			log.Printf("post reset notice for %s: %v", trapName, err)
		}
	})
}

func (h PressureDart) resetDelay() time.Duration {
	if h.ResetDelay != nil {
		return h.ResetDelay()
	}
	span := int64(MaxResetDelay - MinResetDelay)
	return MinResetDelay + time.Duration(rand.Int64N(span+1))
}

// DartDirection returns the direction the dart travels: away from the scene
// edge nearest to p. Ties prefer left, right, top, then bottom.
func DartDirection(p scene.Point, dims scene.Dimensions) string {
	toLeft := p.X
	toRight := dims.Width - p.X
	toTop := p.Y
	toBottom := dims.Height - p.Y
	nearest := min(toLeft, toRight, toTop, toBottom)
	switch nearest {
	case toLeft:
		return "right"
	case toRight:
		return "left"
	case toTop:
		return "bottom"
	default:
		return "top"
	}
}

// DartOrigin is where a dart travelling in direction starts, distance pixels
// from target.
func DartOrigin(target scene.Point, direction string, distance float64) scene.Point {
	switch direction {
	case "left":
		return scene.Point{X: target.X + distance, Y: target.Y}
	case "right":
		return scene.Point{X: target.X - distance, Y: target.Y}
	case "top":
		return scene.Point{X: target.X, Y: target.Y + distance}
	default:
		return scene.Point{X: target.X, Y: target.Y - distance}
	}
}
