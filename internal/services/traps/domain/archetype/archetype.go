// Package archetype builds trap definitions from preset archetypes.
package archetype

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/platform/id"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
)

const (
	IcePit       = "ice-pit"
	PressureDart = "pressure-dart"
)

// Options are caller overrides for a factory. Nil or empty fields keep the
// archetype default.
type Options struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	DC          *int   `json:"dc,omitempty"`
	Damage      string `json:"damage,omitempty" jsonschema:"description=Damage dice formula such as 2d6"`
	DetectionDC *int   `json:"detectionDC,omitempty"`
	DisarmDC    *int   `json:"disarmDC,omitempty"`
	Poisoned    *bool  `json:"poisoned,omitempty" jsonschema:"description=Pressure dart only; defaults to true"`
}

// Factory builds a definition for one archetype.
type Factory func(Options) (trap.Definition, error)

var factories = map[string]Factory{
	IcePit:       NewIcePit,
	PressureDart: NewPressureDart,
}

// Names returns the known archetype tags, sorted.
func Names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create builds a definition for the named archetype.
func Create(name string, opts Options) (trap.Definition, error) {
	tag := strings.ToLower(strings.TrimSpace(name))
	factory, ok := factories[tag]
	if !ok {
		return trap.Definition{}, apperrors.WithMetadata(
			apperrors.CodeTrapUnknownArchetype,
			fmt.Sprintf("unknown trap archetype %q", name),
			map[string]string{"Archetype": name},
		)
	}
	return factory(opts)
}

// Of returns the archetype tag of def: the explicit field when set, else the
// longest known archetype that prefixes the id.
func Of(def trap.Definition, known []string) (string, bool) {
	if tag := strings.TrimSpace(def.Archetype); tag != "" {
		return tag, true
	}
	best := ""
	for _, tag := range known {
		if strings.HasPrefix(def.ID, tag+"-") && len(tag) > len(best) {
			best = tag
		}
	}
	return best, best != ""
}

// EventName is the broadcast event for an archetype: "ice-pit" becomes
// "icePitTrigger".
func EventName(tag string) string {
	parts := strings.Split(strings.ToLower(tag), "-")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Trigger")
	return b.String()
}

func newID(tag, override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}
	value, err := id.NewPrefixedID(tag)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", tag, err)
	}
	return value, nil
}

func pick(override *int, fallback int) int {
	if override != nil && *override > 0 {
		return *override
	}
	return fallback
}

func pickString(override, fallback string) string {
	if value := strings.TrimSpace(override); value != "" {
		return value
	}
	return fallback
}
