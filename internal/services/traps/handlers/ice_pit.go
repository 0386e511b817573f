package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

const icePitAnimation = "ice-break"

// IcePit presents a resolved ice pit: a crack cue at the victim and a
// flavored message.
type IcePit struct {
	Log      chat.Log
	Cues     Cues
	Flags    Flags
	Narrator *chat.Narrator
	Scene    scene.Tokens
}

// Handle implements Handler.
func (h IcePit) Handle(ctx context.Context, ev Event) error {
	center := ev.Token.Center(gridOf(h.Scene))

	cue := Cue{Kind: CueScrollingText, Text: h.Narrator.Text("traps.ice_pit.cue"), Color: "#88ccff", At: center}
	if h.Flags != nil && h.Flags.EffectsLibrary(ctx) {
		cue = Cue{Kind: CueAnimation, Name: icePitAnimation, At: center, Scale: 0.8}
	}
	if h.Cues != nil {
		if err := h.Cues.Cue(ctx, cue); err != nil {
			log.Printf("ice pit cue for trap %s: %v", ev.Trap.ID, err)
		}
	}

	lines := []string{h.Narrator.Text("traps.ice_pit.crack", ev.Actor.Name)}
	if ev.SaveSuccess {
		lines = append(lines, h.Narrator.Text("traps.ice_pit.saved", ev.Actor.Name, ev.Damage))
	} else {
		lines = append(lines, h.Narrator.Text("traps.ice_pit.failed", ev.Actor.Name, ev.Damage))
	}
	if err := h.Log.Post(ctx, chat.Message{
		Title:   h.Narrator.Text("traps.ice_pit.title"),
		Content: strings.Join(lines, "\n"),
		Speaker: ev.Trap.Name,
		Kind:    chat.KindFlavor,
	}); err != nil {
		return fmt.Errorf("post ice pit message: %w", err)
	}
	log.Printf("Ice Pit trap triggered on %s", ev.Actor.Name)
	return nil
}

func gridOf(tokens scene.Tokens) float64 {
	if tokens == nil {
		return scene.DefaultGrid
	}
	if grid := tokens.Dimensions().Grid; grid > 0 {
		return grid
	}
	return scene.DefaultGrid
}
