// Package trigger decides which traps a token movement sets off.
package trigger

import (
	"math"
	"sort"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// Box is an axis-aligned rectangle in pixels with inclusive edges.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoxAt returns the footprint of token placed at p for grid size.
func BoxAt(token scene.Token, p scene.Point, grid float64) Box {
	return Box{
		MinX: p.X,
		MinY: p.Y,
		MaxX: p.X + token.Width*grid,
		MaxY: p.Y + token.Height*grid,
	}
}

// Overlaps reports closed-interval overlap on both axes; touching edges count.
func Overlaps(a, b Box) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX &&
		a.MinY <= b.MaxY && a.MaxY >= b.MinY
}

// Distance is the Chebyshev gap between two boxes in grid squares; zero when
// they overlap or touch.
func Distance(a, b Box, grid float64) float64 {
	dx := math.Max(0, math.Max(b.MinX-a.MaxX, a.MinX-b.MaxX))
	dy := math.Max(0, math.Max(b.MinY-a.MaxY, a.MinY-b.MaxY))
	if grid <= 0 {
		grid = 1
	}
	return math.Max(dx, dy) / grid
}

// Evaluator finds traps set off by a movement. Only the host evaluates.
type Evaluator struct {
	Grid              float64
	Proximity         bool
	ProximityDistance int
}

// FindTriggered returns the ids of untriggered traps whose marker the mover
// lands on (step) or comes within range of (proximity, when enabled), in id
// order. Traps without a marker token are skipped.
func (e Evaluator) FindTriggered(mover scene.Token, to scene.Point, traps []trap.Definition, markers []scene.Token) []string {
	moverBox := BoxAt(mover, to, e.Grid)
	var out []string
	for _, def := range traps {
		if def.Triggered {
			continue
		}
		if def.TriggerType != trap.TriggerStep &&
			!(e.Proximity && def.TriggerType == trap.TriggerProximity) {
			continue
		}
		marker, ok := FindMarker(def.ID, markers, mover.ID)
		if !ok {
			continue
		}
		markerBox := BoxAt(marker, scene.Point{X: marker.X, Y: marker.Y}, e.Grid)

		switch def.TriggerType {
		case trap.TriggerStep:
			if Overlaps(moverBox, markerBox) {
				out = append(out, def.ID)
			}
		case trap.TriggerProximity:
			if Distance(moverBox, markerBox, e.Grid) <= float64(e.proximityRange()) {
				out = append(out, def.ID)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (e Evaluator) proximityRange() int {
	if e.ProximityDistance < 1 {
		return 1
	}
	return e.ProximityDistance
}

// FindMarker returns the marker token for trapID: the token flagged with the
// id, else a token named after it. The excluded token is never a marker.
func FindMarker(trapID string, tokens []scene.Token, exclude string) (scene.Token, bool) {
	var byName *scene.Token
	for i := range tokens {
		token := tokens[i]
		if token.ID == exclude {
			continue
		}
		if token.TrapID() == trapID {
			return token, true
		}
		if byName == nil && token.Name == trapID {
			byName = &tokens[i]
		}
	}
	if byName != nil {
		return *byName, true
	}
	return scene.Token{}, false
}
