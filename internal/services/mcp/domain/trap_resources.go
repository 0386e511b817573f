package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	trapListURI      = "traps://list"
	trapURIPrefix    = "trap://"
	trapURITemplate  = trapURIPrefix + "{trap_id}"
	jsonResourceMIME = "application/json"
)

// TrapListPayload is the readable trap listing.
type TrapListPayload struct {
	Traps []TrapSummary `json:"traps"`
}

// TrapListResource defines the MCP resource listing registered traps.
func TrapListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "trap_list",
		Title:       "Traps",
		Description: "Readable listing of registered traps",
		MIMEType:    jsonResourceMIME,
		URI:         trapListURI,
	}
}

// TrapResourceTemplate defines the MCP resource for one trap.
func TrapResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "trap",
		Title:       "Trap",
		Description: "Readable trap definition. URI format: trap://{trap_id}",
		MIMEType:    jsonResourceMIME,
		URITemplate: trapURITemplate,
	}
}

// TrapListResourceHandler returns the readable trap listing.
func TrapListResourceHandler(api TrapAPI) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if api == nil {
			return nil, fmt.Errorf("trap api is not configured")
		}
		uri := trapListURI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		if uri != trapListURI {
			return nil, fmt.Errorf("invalid URI: expected %s, got %q", trapListURI, uri)
		}

		payload := TrapListPayload{Traps: []TrapSummary{}}
		for _, def := range api.ListTraps(ctx) {
			payload.Traps = append(payload.Traps, summaryOf(def))
		}
		return jsonResource(uri, payload)
	}
}

// TrapResourceHandler returns one readable trap definition.
func TrapResourceHandler(api TrapAPI) mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if api == nil {
			return nil, fmt.Errorf("trap api is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("trap ID is required; use URI format %s", trapURITemplate)
		}
		uri := req.Params.URI
		trapID, err := parseTrapIDFromURI(uri)
		if err != nil {
			return nil, err
		}
		def, err := api.GetTrap(trapID)
		if err != nil {
			return nil, fmt.Errorf("read trap %q: %w", trapID, err)
		}
		return jsonResource(uri, def)
	}
}

func parseTrapIDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, trapURIPrefix) {
		return "", fmt.Errorf("URI must start with %q", trapURIPrefix)
	}
	trapID := strings.TrimSpace(strings.TrimPrefix(uri, trapURIPrefix))
	if trapID == "" || strings.Contains(trapID, "/") || trapID == "{trap_id}" {
		return "", fmt.Errorf("trap ID is required in URI")
	}
	return trapID, nil
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: jsonResourceMIME,
				Text:     string(data),
			},
		},
	}, nil
}
