package archetype

import "github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"

// NewIcePit builds a one-time ice pit: dex save for half cold damage, then
// prone and slowed.
func NewIcePit(opts Options) (trap.Definition, error) {
	trapID, err := newID(IcePit, opts.ID)
	if err != nil {
		return trap.Definition{}, err
	}
	return trap.Definition{
		ID:          trapID,
		Name:        pickString(opts.Name, "Ice Pit"),
		Description: "A hidden pit covered with a thin layer of ice that breaks when stepped on.",
		Archetype:   IcePit,
		TriggerType: trap.TriggerStep,
		Visible:     false,
		SavingThrow: &trap.SavingThrow{
			Type:              "dex",
			DC:                pick(opts.DC, 15),
			SuccessMultiplier: trap.Float(0.5),
		},
		Damage: &trap.Damage{
			Formula: pickString(opts.Damage, "2d6"),
			Type:    "cold",
		},
		Effects: []trap.Effect{
			{Name: "Prone", Duration: 1, Icon: "icons/svg/falling.svg"},
			{Name: "Slowed", Duration: 2, Icon: "icons/svg/snowflake.svg"},
		},
		TokenImagePath: "icons/svg/ice-aura.svg",
		DetectionDC:    trap.Int(pick(opts.DetectionDC, 14)),
		DisarmDC:       trap.Int(pick(opts.DisarmDC, 16)),
		OneTimeUse:     true,
	}, nil
}
