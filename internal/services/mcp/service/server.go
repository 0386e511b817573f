package service

import (
	"log"
	"net/http"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/mcp/domain"
	"github.com/louisbranch/trapmacros/internal/services/traps/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "trapmacros"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server owns the MCP server and its GM-only HTTP entry point.
type Server struct {
	mcpServer *mcp.Server
	verifier  session.Verifier
}

// API is the host handle behind the MCP tools.
type API interface {
	domain.TrapAPI
	domain.SettingsAPI
}

// New creates an MCP server exposing the trap and settings tools over api.
// Callers authenticate with a participant token carrying the gm role.
func New(api API, verifier session.Verifier) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTrapTools(mcpServer, api)
	registerTrapResources(mcpServer, api)
	mcp.AddTool(mcpServer, domain.SettingsSetTool(), domain.SettingsSetHandler(api))
	return &Server{mcpServer: mcpServer, verifier: verifier}
}

func registerTrapTools(server *mcp.Server, api domain.TrapAPI) {
	mcp.AddTool(server, domain.TrapListTool(), domain.TrapListHandler(api))
	mcp.AddTool(server, domain.TrapGetTool(), domain.TrapGetHandler(api))
	mcp.AddTool(server, domain.TrapCreateTool(), domain.TrapCreateHandler(api))
	mcp.AddTool(server, domain.TrapTriggerTool(), domain.TrapTriggerHandler(api))
}

func registerTrapResources(server *mcp.Server, api domain.TrapAPI) {
	server.AddResource(domain.TrapListResource(), domain.TrapListResourceHandler(api))
	server.AddResourceTemplate(domain.TrapResourceTemplate(), domain.TrapResourceHandler(api))
}

// MCP returns the underlying server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcpServer
}

// Handler serves MCP streamable HTTP for GM participants.
func (s *Server) Handler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			http.Error(w, "mcp auth is not configured", http.StatusServiceUnavailable)
			return
		}
		participant, err := s.verifier.Verify(session.TokenFromRequest(r))
		if err != nil {
			log.Printf("mcp: unauthorized remote=%s: %v", r.RemoteAddr, err)
			http.Error(w, "authentication required", apperrors.CodeOf(err).HTTPStatus())
			return
		}
		if !participant.IsGM() {
			http.Error(w, "gm role required", apperrors.CodeParticipantForbidden.HTTPStatus())
			return
		}
		streamable.ServeHTTP(w, r)
	})
}
