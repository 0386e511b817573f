package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SettingsAPI reads and writes the module flags.
type SettingsAPI interface {
	SetFlag(ctx context.Context, key, value string) error
	Flags(ctx context.Context) (settings.Values, error)
}

// SettingsSetInput represents the MCP tool input for changing one flag.
type SettingsSetInput struct {
	Key   string `json:"key" jsonschema:"flag key: autoRevealTraps, enableProximityTriggers, proximityDistance or effectsLibrary"`
	Value string `json:"value" jsonschema:"new value; true/false for toggles, 1 to 5 for proximityDistance"`
}

// SettingsSetTool defines the MCP tool schema for changing one flag.
func SettingsSetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "settings_set",
		Description: "Changes one trap module flag and returns every flag after the change.",
	}
}

// SettingsSetHandler stores one flag. Proximity distances outside 1..5 are
// clamped.
func SettingsSetHandler(api SettingsAPI) mcp.ToolHandlerFor[SettingsSetInput, settings.Values] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SettingsSetInput) (*mcp.CallToolResult, settings.Values, error) {
		if err := api.SetFlag(ctx, strings.TrimSpace(input.Key), input.Value); err != nil {
			return nil, settings.Values{}, err
		}
		values, err := api.Flags(ctx)
		if err != nil {
			return nil, settings.Values{}, fmt.Errorf("load flags: %w", err)
		}
		return nil, values, nil
	}
}
