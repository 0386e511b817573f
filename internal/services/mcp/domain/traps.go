package domain

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TrapAPI is the host registry handle the trap tools drive.
type TrapAPI interface {
	ListTraps(ctx context.Context) []trap.Definition
	GetTrap(trapID string) (trap.Definition, error)
	CreateTrap(tag string, opts archetype.Options) (trap.Definition, error)
	RegisterTrap(ctx context.Context, def trap.Definition) error
	PlaceTrap(ctx context.Context, tag string, opts archetype.Options, at scene.Point) (trap.Definition, error)
	TriggerTrap(ctx context.Context, req engine.Request) (trap.Result, error)
}

// TrapSummary is the MCP view of one trap.
type TrapSummary struct {
	ID          string `json:"id" jsonschema:"trap identifier"`
	Name        string `json:"name" jsonschema:"display name"`
	Archetype   string `json:"archetype,omitempty" jsonschema:"archetype tag such as ice-pit"`
	TriggerType string `json:"trigger_type" jsonschema:"step, interact, proximity or timer"`
	OneTimeUse  bool   `json:"one_time_use" jsonschema:"whether the trap is spent after firing"`
	Triggered   bool   `json:"triggered" jsonschema:"whether a one-time trap has already fired"`
}

// TrapDetail is the full MCP view of one trap.
type TrapDetail struct {
	ID          string   `json:"id" jsonschema:"trap identifier"`
	Name        string   `json:"name" jsonschema:"display name"`
	Archetype   string   `json:"archetype,omitempty" jsonschema:"archetype tag such as ice-pit"`
	TriggerType string   `json:"trigger_type" jsonschema:"step, interact, proximity or timer"`
	OneTimeUse  bool     `json:"one_time_use" jsonschema:"whether the trap is spent after firing"`
	Triggered   bool     `json:"triggered" jsonschema:"whether a one-time trap has already fired"`
	Description string   `json:"description" jsonschema:"flavor text announced on trigger"`
	Visible     bool     `json:"visible" jsonschema:"whether the trap has been revealed"`
	SaveAbility string   `json:"save_ability,omitempty" jsonschema:"ability used for the saving throw"`
	SaveDC      int      `json:"save_dc,omitempty" jsonschema:"saving throw difficulty"`
	Damage      string   `json:"damage,omitempty" jsonschema:"damage dice formula"`
	DamageType  string   `json:"damage_type,omitempty" jsonschema:"damage type"`
	Effects     []string `json:"effects,omitempty" jsonschema:"names of effects applied to the victim"`
}

// TrapListInput represents the MCP tool input for listing traps.
type TrapListInput struct{}

// TrapListResult represents the MCP tool output for listing traps.
type TrapListResult struct {
	Traps []TrapSummary `json:"traps" jsonschema:"registered traps in id order"`
}

// TrapListTool defines the MCP tool schema for listing traps.
func TrapListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "trap_list",
		Description: "Lists every registered trap with its trigger type and whether it has fired.",
	}
}

// TrapListHandler lists registered traps.
func TrapListHandler(api TrapAPI) mcp.ToolHandlerFor[TrapListInput, TrapListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ TrapListInput) (*mcp.CallToolResult, TrapListResult, error) {
		defs := api.ListTraps(ctx)
		result := TrapListResult{Traps: make([]TrapSummary, 0, len(defs))}
		for _, def := range defs {
			result.Traps = append(result.Traps, summaryOf(def))
		}
		return nil, result, nil
	}
}

// TrapGetInput represents the MCP tool input for reading one trap.
type TrapGetInput struct {
	ID string `json:"id" jsonschema:"trap identifier"`
}

// TrapGetTool defines the MCP tool schema for reading one trap.
func TrapGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "trap_get",
		Description: "Returns one trap's full definition.",
	}
}

// TrapGetHandler reads one trap.
func TrapGetHandler(api TrapAPI) mcp.ToolHandlerFor[TrapGetInput, TrapDetail] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input TrapGetInput) (*mcp.CallToolResult, TrapDetail, error) {
		def, err := api.GetTrap(strings.TrimSpace(input.ID))
		if err != nil {
			return nil, TrapDetail{}, err
		}
		return nil, detailOf(def), nil
	}
}

// TrapCreateInput represents the MCP tool input for creating a trap.
type TrapCreateInput struct {
	Archetype string   `json:"archetype" jsonschema:"archetype tag: ice-pit or pressure-dart"`
	ID        string   `json:"id,omitempty" jsonschema:"optional trap identifier"`
	Name      string   `json:"name,omitempty" jsonschema:"optional display name"`
	DC        int      `json:"dc,omitempty" jsonschema:"optional saving throw difficulty"`
	Damage    string   `json:"damage,omitempty" jsonschema:"optional damage dice formula such as 2d6"`
	Poisoned  *bool    `json:"poisoned,omitempty" jsonschema:"pressure dart only; whether a hit poisons"`
	X         *float64 `json:"x,omitempty" jsonschema:"canvas x in pixels; with y, places a hidden marker token"`
	Y         *float64 `json:"y,omitempty" jsonschema:"canvas y in pixels; with x, places a hidden marker token"`
}

// TrapCreateTool defines the MCP tool schema for creating a trap.
func TrapCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "trap_create",
		Description: "Creates and registers a trap from an archetype. When x and y are given the trap is also placed on the scene as a hidden marker.",
	}
}

// TrapCreateHandler creates, registers and optionally places a trap.
func TrapCreateHandler(api TrapAPI) mcp.ToolHandlerFor[TrapCreateInput, TrapDetail] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TrapCreateInput) (*mcp.CallToolResult, TrapDetail, error) {
		opts := archetype.Options{
			ID:       input.ID,
			Name:     input.Name,
			Damage:   input.Damage,
			Poisoned: input.Poisoned,
		}
		if input.DC > 0 {
			opts.DC = trap.Int(input.DC)
		}

		if input.X != nil && input.Y != nil {
			def, err := api.PlaceTrap(ctx, input.Archetype, opts, scene.Point{X: *input.X, Y: *input.Y})
			if err != nil {
				return nil, TrapDetail{}, fmt.Errorf("place trap: %w", err)
			}
			return nil, detailOf(def), nil
		}
		if (input.X == nil) != (input.Y == nil) {
			return nil, TrapDetail{}, fmt.Errorf("x and y must be given together")
		}

		def, err := api.CreateTrap(input.Archetype, opts)
		if err != nil {
			return nil, TrapDetail{}, err
		}
		if err := api.RegisterTrap(ctx, def); err != nil {
			return nil, TrapDetail{}, fmt.Errorf("register trap: %w", err)
		}
		return nil, detailOf(def), nil
	}
}

// TrapTriggerInput represents the MCP tool input for firing a trap.
type TrapTriggerInput struct {
	ID      string `json:"id" jsonschema:"trap identifier"`
	TokenID string `json:"token_id" jsonschema:"victim token identifier"`
}

// TrapTriggerResult represents the MCP tool output for firing a trap.
type TrapTriggerResult struct {
	Success     bool   `json:"success" jsonschema:"whether the trap fired"`
	Message     string `json:"message" jsonschema:"outcome summary"`
	Code        string `json:"code,omitempty" jsonschema:"failure code when the trap did not fire"`
	Damage      *int   `json:"damage,omitempty" jsonschema:"damage applied after the saving throw"`
	SaveRoll    *int   `json:"save_roll,omitempty" jsonschema:"saving throw total"`
	SaveDC      *int   `json:"save_dc,omitempty" jsonschema:"saving throw difficulty"`
	SaveSuccess *bool  `json:"save_success,omitempty" jsonschema:"whether the saving throw succeeded"`
}

// TrapTriggerTool defines the MCP tool schema for firing a trap.
func TrapTriggerTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "trap_trigger",
		Description: "Fires a trap against a token: announces it, rolls damage and the saving throw, and applies damage and effects.",
	}
}

// TrapTriggerHandler fires one trap. Pre-condition failures such as an unknown
// id come back as an unsuccessful result, not a tool error.
func TrapTriggerHandler(api TrapAPI) mcp.ToolHandlerFor[TrapTriggerInput, TrapTriggerResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TrapTriggerInput) (*mcp.CallToolResult, TrapTriggerResult, error) {
		if strings.TrimSpace(input.TokenID) == "" {
			return nil, TrapTriggerResult{}, fmt.Errorf("token_id is required")
		}
		res, err := api.TriggerTrap(ctx, engine.Request{
			TrapID:   strings.TrimSpace(input.ID),
			TargetID: strings.TrimSpace(input.TokenID),
		})
		result := triggerResultOf(res)
		if err != nil {
			if result.Code == "" {
				result.Code = string(apperrors.CodeOf(err))
			}
			return nil, result, fmt.Errorf("trigger trap: %w", err)
		}
		return nil, result, nil
	}
}

func summaryOf(def trap.Definition) TrapSummary {
	tag, _ := archetype.Of(def, archetype.Names())
	return TrapSummary{
		ID:          def.ID,
		Name:        def.Name,
		Archetype:   tag,
		TriggerType: string(def.TriggerType),
		OneTimeUse:  def.OneTimeUse,
		Triggered:   def.Triggered,
	}
}

func detailOf(def trap.Definition) TrapDetail {
	summary := summaryOf(def)
	out := TrapDetail{
		ID:          summary.ID,
		Name:        summary.Name,
		Archetype:   summary.Archetype,
		TriggerType: summary.TriggerType,
		OneTimeUse:  summary.OneTimeUse,
		Triggered:   summary.Triggered,
		Description: def.Description,
		Visible:     def.Visible,
	}
	if def.SavingThrow != nil {
		out.SaveAbility = def.SavingThrow.Type
		out.SaveDC = def.SavingThrow.DC
	}
	if def.Damage != nil {
		out.Damage = def.Damage.Formula
		out.DamageType = def.Damage.Type
	}
	for _, effect := range def.Effects {
		out.Effects = append(out.Effects, effect.Name)
	}
	return out
}

func triggerResultOf(res trap.Result) TrapTriggerResult {
	out := TrapTriggerResult{
		Success: res.Success,
		Message: res.Message,
		Code:    string(res.Code),
		Damage:  res.Damage,
	}
	if save := res.SavingThrowResult; save != nil {
		roll, dc, success := save.Roll, save.DC, save.Success
		out.SaveRoll, out.SaveDC, out.SaveSuccess = &roll, &dc, &success
	}
	return out
}
