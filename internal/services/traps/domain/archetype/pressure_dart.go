package archetype

import (
	"fmt"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
)

// NewPressureDart builds a reusable dart trap. A successful dex save avoids
// all damage; the dart is poisoned unless opts.Poisoned is false.
func NewPressureDart(opts Options) (trap.Definition, error) {
	trapID, err := newID(PressureDart, opts.ID)
	if err != nil {
		return trap.Definition{}, err
	}
	poisoned := opts.Poisoned == nil || *opts.Poisoned

	var effects []trap.Effect
	adjective := ""
	if poisoned {
		effects = []trap.Effect{{Name: "Poisoned", Duration: 3, Icon: "icons/svg/poison.svg"}}
		adjective = "poisoned "
	}

	return trap.Definition{
		ID:          trapID,
		Name:        pickString(opts.Name, "Pressure Pad Dart"),
		Description: fmt.Sprintf("A hidden pressure plate that shoots %sdarts when stepped on.", adjective),
		Archetype:   PressureDart,
		TriggerType: trap.TriggerStep,
		Visible:     false,
		SavingThrow: &trap.SavingThrow{
			Type:              "dex",
			DC:                pick(opts.DC, 12),
			SuccessMultiplier: trap.Float(0),
		},
		Damage: &trap.Damage{
			Formula: pickString(opts.Damage, "1d4 + 2"),
			Type:    "piercing",
		},
		Effects:        effects,
		TokenImagePath: "icons/svg/trap.svg",
		DetectionDC:    trap.Int(pick(opts.DetectionDC, 16)),
		DisarmDC:       trap.Int(pick(opts.DisarmDC, 14)),
		OneTimeUse:     false,
	}, nil
}
