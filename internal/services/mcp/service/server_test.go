package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/mcp/domain"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/louisbranch/trapmacros/internal/services/traps/session"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeVerifier map[string]session.Participant

func (f fakeVerifier) Verify(token string) (session.Participant, error) {
	p, ok := f[token]
	if !ok {
		return session.Participant{}, apperrors.New(apperrors.CodeParticipantUnauthenticated, "unknown token")
	}
	return p, nil
}

var testVerifier = fakeVerifier{
	"gm-token":     {UserID: "gm-1", Name: "Dana", Role: session.RoleGM},
	"player-token": {UserID: "p-1", Name: "Aria", Role: session.RolePlayer},
}

type stubAPI struct {
	traps []trap.Definition
	flags settings.Values
}

func (s *stubAPI) SetFlag(_ context.Context, key, value string) error {
	if key != settings.KeyEnableProximityTriggers {
		return apperrors.New(apperrors.CodeSettingsInvalidValue, "unsupported flag")
	}
	s.flags.EnableProximityTriggers = value == "true"
	return nil
}

func (s *stubAPI) Flags(context.Context) (settings.Values, error) { return s.flags, nil }

func (s *stubAPI) ListTraps(context.Context) []trap.Definition { return s.traps }

func (s *stubAPI) GetTrap(trapID string) (trap.Definition, error) {
	for _, def := range s.traps {
		if def.ID == trapID {
			return def, nil
		}
	}
	return trap.Definition{}, apperrors.New(apperrors.CodeTrapNotFound, "trap not found")
}

func (s *stubAPI) CreateTrap(tag string, opts archetype.Options) (trap.Definition, error) {
	return archetype.Create(tag, opts)
}

func (s *stubAPI) RegisterTrap(_ context.Context, def trap.Definition) error {
	s.traps = append(s.traps, def)
	return nil
}

func (s *stubAPI) PlaceTrap(ctx context.Context, tag string, opts archetype.Options, _ scene.Point) (trap.Definition, error) {
	def, err := s.CreateTrap(tag, opts)
	if err != nil {
		return trap.Definition{}, err
	}
	return def, s.RegisterTrap(ctx, def)
}

func (s *stubAPI) TriggerTrap(context.Context, engine.Request) (trap.Result, error) {
	return trap.Result{Success: true, Message: "fired"}, nil
}

func TestHandlerRequiresGM(t *testing.T) {
	tests := []struct {
		name     string
		verifier session.Verifier
		token    string
		want     int
	}{
		{name: "no verifier", verifier: nil, token: "gm-token", want: http.StatusServiceUnavailable},
		{name: "missing token", verifier: testVerifier, token: "", want: http.StatusUnauthorized},
		{name: "unknown token", verifier: testVerifier, token: "forged", want: http.StatusUnauthorized},
		{name: "player", verifier: testVerifier, token: "player-token", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&stubAPI{}, tt.verifier)
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGMPassesThroughToTransport(t *testing.T) {
	srv := New(&stubAPI{}, testVerifier)
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer gm-token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	switch rec.Code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable:
		t.Fatalf("gm request rejected by auth: %d", rec.Code)
	}
}

func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCP().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

func TestRegisteredTools(t *testing.T) {
	cs := connect(t, New(&stubAPI{}, testVerifier))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"settings_set", "trap_create", "trap_get", "trap_list", "trap_trigger"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools = %v, want %v", names, want)
		}
	}
}

func TestCallTrapCreateThenList(t *testing.T) {
	api := &stubAPI{}
	cs := connect(t, New(api, testVerifier))
	ctx := context.Background()

	created, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "trap_create",
		Arguments: map[string]any{"archetype": "ice-pit", "id": "ice-pit-1"},
	})
	if err != nil {
		t.Fatalf("call trap_create: %v", err)
	}
	if created.IsError {
		t.Fatalf("trap_create returned a tool error: %+v", created.Content)
	}

	listed, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "trap_list", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call trap_list: %v", err)
	}
	raw, err := json.Marshal(listed.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var result domain.TrapListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode trap_list: %v", err)
	}
	if len(result.Traps) != 1 || result.Traps[0].ID != "ice-pit-1" {
		t.Fatalf("traps = %+v", result.Traps)
	}
}

func TestCallTrapGetUnknownIsToolError(t *testing.T) {
	cs := connect(t, New(&stubAPI{}, testVerifier))
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "trap_get",
		Arguments: map[string]any{"id": "missing"},
	})
	if err != nil {
		t.Fatalf("call trap_get: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for unknown trap")
	}
}

func TestReadTrapResource(t *testing.T) {
	api := &stubAPI{}
	def, err := archetype.Create(archetype.PressureDart, archetype.Options{ID: "dart-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	api.traps = append(api.traps, def)
	cs := connect(t, New(api, testVerifier))

	res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "trap://dart-1"})
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(res.Contents))
	}
	var got trap.Definition
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "dart-1" {
		t.Fatalf("id = %q", got.ID)
	}
}

func TestCallSettingsSet(t *testing.T) {
	api := &stubAPI{}
	cs := connect(t, New(api, testVerifier))
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "settings_set",
		Arguments: map[string]any{"key": settings.KeyEnableProximityTriggers, "value": "true"},
	})
	if err != nil {
		t.Fatalf("call settings_set: %v", err)
	}
	if res.IsError {
		t.Fatalf("settings_set returned a tool error: %+v", res.Content)
	}
	if !api.flags.EnableProximityTriggers {
		t.Fatal("flag not stored")
	}
}
