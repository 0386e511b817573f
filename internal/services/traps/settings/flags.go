package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
)

const (
	MinProximityDistance = 1
	MaxProximityDistance = 5
)

// Values are the user-facing module flags.
type Values struct {
	AutoRevealTraps         bool `json:"autoRevealTraps"`
	EnableProximityTriggers bool `json:"enableProximityTriggers"`
	ProximityDistance       int  `json:"proximityDistance"`
	EffectsLibrary          bool `json:"effectsLibrary"`
}

// Defaults returns the flag values used when nothing is stored.
func Defaults() Values {
	return Values{
		AutoRevealTraps:         true,
		EnableProximityTriggers: false,
		ProximityDistance:       1,
		EffectsLibrary:          false,
	}
}

// Flags reads module flags from a store on demand.
type Flags struct {
	Store Store
}

// Load reads every flag. Absent or unparsable values fall back to defaults;
// unparsable ones are logged.
func (f Flags) Load(ctx context.Context) (Values, error) {
	values := Defaults()
	var err error
	if values.AutoRevealTraps, err = f.readBool(ctx, KeyAutoRevealTraps, values.AutoRevealTraps); err != nil {
		return Values{}, err
	}
	if values.EnableProximityTriggers, err = f.readBool(ctx, KeyEnableProximityTriggers, values.EnableProximityTriggers); err != nil {
		return Values{}, err
	}
	if values.EffectsLibrary, err = f.readBool(ctx, KeyEffectsLibrary, values.EffectsLibrary); err != nil {
		return Values{}, err
	}
	raw, ok, err := f.read(ctx, KeyProximityDistance)
	if err != nil {
		return Values{}, err
	}
	if ok {
		distance, parseErr := strconv.Atoi(strings.TrimSpace(raw))
		if parseErr != nil {
			log.Printf("settings: ignore %s.%s=%q: %v", Namespace, KeyProximityDistance, raw, parseErr)
		} else {
			values.ProximityDistance = ClampProximity(distance)
		}
	}
	return values, nil
}

// Set validates and stores one flag.
func (f Flags) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyAutoRevealTraps, KeyEnableProximityTriggers, KeyEffectsLibrary:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return invalidValue(key, value)
		}
		value = strconv.FormatBool(parsed)
	case KeyProximityDistance:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return invalidValue(key, value)
		}
		value = strconv.Itoa(ClampProximity(parsed))
	default:
		return invalidValue(key, value)
	}
	if err := f.Store.Set(ctx, Namespace, key, value); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// EffectsLibrary reports whether animation cues are enabled. Store failures
// read as the default.
func (f Flags) EffectsLibrary(ctx context.Context) bool {
	enabled, err := f.readBool(ctx, KeyEffectsLibrary, Defaults().EffectsLibrary)
	if err != nil {
		log.Printf("settings: read %s.%s: %v", Namespace, KeyEffectsLibrary, err)
		return Defaults().EffectsLibrary
	}
	return enabled
}

// ClampProximity clamps a distance into the supported 1..5 squares.
func ClampProximity(distance int) int {
	return max(MinProximityDistance, min(MaxProximityDistance, distance))
}

func (f Flags) read(ctx context.Context, key string) (string, bool, error) {
	raw, err := f.Store.Get(ctx, Namespace, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, true, nil
}

func (f Flags) readBool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, ok, err := f.read(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	parsed, parseErr := strconv.ParseBool(strings.TrimSpace(raw))
	if parseErr != nil {
		log.Printf("settings: ignore %s.%s=%q: %v", Namespace, key, raw, parseErr)
		return fallback, nil
	}
	return parsed, nil
}

func invalidValue(key, value string) error {
	return apperrors.WithMetadata(
		apperrors.CodeSettingsInvalidValue,
		fmt.Sprintf("invalid value %q for setting %s", value, key),
		map[string]string{"Key": key},
	)
}
