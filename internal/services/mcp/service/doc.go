// Package service exposes the trap tools over MCP streamable HTTP.
//
// It is the transport adapter layer: the package knows how to authenticate
// and serve MCP sessions and delegates meaning to the domain handlers.
package service
