// Package domain translates MCP tool calls into trap registry operations.
//
// Each tool has an input type, an output type, a Tool constructor with its
// schema metadata and a Handler constructor bound to the registry handle.
package domain
