package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeTrapAPI struct {
	traps       map[string]trap.Definition
	registered  []trap.Definition
	placedAt    *scene.Point
	lastOpts    archetype.Options
	lastReq     engine.Request
	result      trap.Result
	triggerErr  error
	registerErr error
}

func newFakeTrapAPI(defs ...trap.Definition) *fakeTrapAPI {
	f := &fakeTrapAPI{traps: map[string]trap.Definition{}}
	for _, def := range defs {
		f.traps[def.ID] = def
	}
	return f
}

func (f *fakeTrapAPI) ListTraps(context.Context) []trap.Definition {
	out := make([]trap.Definition, 0, len(f.traps))
	for _, id := range []string{"ice-pit-1", "pressure-dart-1"} {
		if def, ok := f.traps[id]; ok {
			out = append(out, def)
		}
	}
	return out
}

func (f *fakeTrapAPI) GetTrap(trapID string) (trap.Definition, error) {
	def, ok := f.traps[trapID]
	if !ok {
		return trap.Definition{}, apperrors.New(apperrors.CodeTrapNotFound, "trap "+trapID+" not found")
	}
	return def, nil
}

func (f *fakeTrapAPI) CreateTrap(tag string, opts archetype.Options) (trap.Definition, error) {
	f.lastOpts = opts
	return archetype.Create(tag, opts)
}

func (f *fakeTrapAPI) RegisterTrap(_ context.Context, def trap.Definition) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, def)
	f.traps[def.ID] = def
	return nil
}

func (f *fakeTrapAPI) PlaceTrap(ctx context.Context, tag string, opts archetype.Options, at scene.Point) (trap.Definition, error) {
	def, err := f.CreateTrap(tag, opts)
	if err != nil {
		return trap.Definition{}, err
	}
	f.placedAt = &at
	return def, f.RegisterTrap(ctx, def)
}

func (f *fakeTrapAPI) TriggerTrap(_ context.Context, req engine.Request) (trap.Result, error) {
	f.lastReq = req
	return f.result, f.triggerErr
}

func mustArchetype(t *testing.T, tag, trapID string) trap.Definition {
	t.Helper()
	def, err := archetype.Create(tag, archetype.Options{ID: trapID})
	if err != nil {
		t.Fatalf("create %s: %v", tag, err)
	}
	return def
}

func TestTrapListHandler(t *testing.T) {
	ice := mustArchetype(t, archetype.IcePit, "ice-pit-1")
	ice.Triggered = true
	api := newFakeTrapAPI(ice, mustArchetype(t, archetype.PressureDart, "pressure-dart-1"))

	_, result, err := TrapListHandler(api)(context.Background(), nil, TrapListInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Traps) != 2 {
		t.Fatalf("expected 2 traps, got %d", len(result.Traps))
	}
	first := result.Traps[0]
	if first.ID != "ice-pit-1" || first.Archetype != archetype.IcePit || !first.Triggered || !first.OneTimeUse {
		t.Errorf("unexpected first trap %+v", first)
	}
	if result.Traps[1].OneTimeUse {
		t.Error("expected pressure dart to be reusable")
	}
}

func TestTrapGetHandler(t *testing.T) {
	api := newFakeTrapAPI(mustArchetype(t, archetype.IcePit, "ice-pit-1"))

	t.Run("found", func(t *testing.T) {
		_, result, err := TrapGetHandler(api)(context.Background(), nil, TrapGetInput{ID: " ice-pit-1 "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.SaveAbility != "dex" || result.SaveDC != 15 {
			t.Errorf("save = %s DC %d", result.SaveAbility, result.SaveDC)
		}
		if result.Damage != "2d6" || result.DamageType != "cold" {
			t.Errorf("damage = %s %s", result.Damage, result.DamageType)
		}
		if len(result.Effects) != 2 {
			t.Errorf("effects = %v", result.Effects)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := TrapGetHandler(api)(context.Background(), nil, TrapGetInput{ID: "nope"})
		if apperrors.CodeOf(err) != apperrors.CodeTrapNotFound {
			t.Fatalf("expected TRAP_NOT_FOUND, got %v", err)
		}
	})
}

func TestTrapCreateHandler(t *testing.T) {
	t.Run("register only", func(t *testing.T) {
		api := newFakeTrapAPI()
		_, result, err := TrapCreateHandler(api)(context.Background(), nil, TrapCreateInput{
			Archetype: archetype.PressureDart,
			ID:        "pressure-dart-7",
			DC:        17,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ID != "pressure-dart-7" || result.SaveDC != 17 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(api.registered) != 1 || api.placedAt != nil {
			t.Errorf("registered=%d placed=%v", len(api.registered), api.placedAt)
		}
	})

	t.Run("place", func(t *testing.T) {
		api := newFakeTrapAPI()
		x, y := 150.0, 250.0
		_, _, err := TrapCreateHandler(api)(context.Background(), nil, TrapCreateInput{
			Archetype: archetype.IcePit,
			X:         &x,
			Y:         &y,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.placedAt == nil || *api.placedAt != (scene.Point{X: 150, Y: 250}) {
			t.Errorf("placedAt = %v", api.placedAt)
		}
	})

	t.Run("half a position", func(t *testing.T) {
		api := newFakeTrapAPI()
		x := 1.0
		_, _, err := TrapCreateHandler(api)(context.Background(), nil, TrapCreateInput{Archetype: archetype.IcePit, X: &x})
		if err == nil {
			t.Fatal("expected error")
		}
		if len(api.registered) != 0 {
			t.Error("expected nothing registered")
		}
	})

	t.Run("unknown archetype", func(t *testing.T) {
		api := newFakeTrapAPI()
		_, _, err := TrapCreateHandler(api)(context.Background(), nil, TrapCreateInput{Archetype: "boulder"})
		if apperrors.CodeOf(err) != apperrors.CodeTrapUnknownArchetype {
			t.Fatalf("expected TRAP_UNKNOWN_ARCHETYPE, got %v", err)
		}
	})

	t.Run("register failure", func(t *testing.T) {
		api := newFakeTrapAPI()
		api.registerErr = apperrors.New(apperrors.CodeTrapPersistence, "disk full")
		_, _, err := TrapCreateHandler(api)(context.Background(), nil, TrapCreateInput{Archetype: archetype.IcePit})
		if apperrors.CodeOf(err) != apperrors.CodeTrapPersistence {
			t.Fatalf("expected TRAP_PERSISTENCE, got %v", err)
		}
	})
}

func TestTrapTriggerHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newFakeTrapAPI()
		api.result = trap.Result{
			Success:           true,
			Message:           "Ice Pit triggered successfully on Aria",
			Damage:            trap.Int(3),
			SavingThrowResult: &trap.SaveResult{Roll: 22, DC: 15, Success: true},
		}
		_, result, err := TrapTriggerHandler(api)(context.Background(), nil, TrapTriggerInput{ID: "ice-pit-1", TokenID: "hero"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.lastReq.TrapID != "ice-pit-1" || api.lastReq.TargetID != "hero" {
			t.Errorf("request = %+v", api.lastReq)
		}
		if !result.Success || *result.Damage != 3 || *result.SaveRoll != 22 || !*result.SaveSuccess {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("precondition failure is a result", func(t *testing.T) {
		api := newFakeTrapAPI()
		api.result = trap.Failure(apperrors.CodeTrapNotFound, "Trap with ID x not found")
		_, result, err := TrapTriggerHandler(api)(context.Background(), nil, TrapTriggerInput{ID: "x", TokenID: "hero"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Success || result.Code != string(apperrors.CodeTrapNotFound) {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("post-commit failure", func(t *testing.T) {
		api := newFakeTrapAPI()
		api.result = trap.Result{Message: "update actor: boom"}
		api.triggerErr = apperrors.Wrap(apperrors.CodeTrapPersistence, "boom", errors.New("boom"))
		_, result, err := TrapTriggerHandler(api)(context.Background(), nil, TrapTriggerInput{ID: "x", TokenID: "hero"})
		if err == nil {
			t.Fatal("expected error")
		}
		if result.Code != string(apperrors.CodeTrapPersistence) {
			t.Errorf("code = %q", result.Code)
		}
	})

	t.Run("token required", func(t *testing.T) {
		api := newFakeTrapAPI()
		if _, _, err := TrapTriggerHandler(api)(context.Background(), nil, TrapTriggerInput{ID: "x"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestTrapListResourceHandler(t *testing.T) {
	icePit, _ := archetype.Create(archetype.IcePit, archetype.Options{ID: "ice-pit-1"})
	handler := TrapListResourceHandler(newFakeTrapAPI(icePit))

	res, err := handler(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "traps://list"}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var payload TrapListPayload
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Traps) != 1 || payload.Traps[0].ID != "ice-pit-1" {
		t.Fatalf("traps = %+v", payload.Traps)
	}

	if _, err := handler(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "traps://other"}}); err == nil {
		t.Fatal("expected error for wrong URI")
	}
}

func TestTrapResourceHandler(t *testing.T) {
	icePit, _ := archetype.Create(archetype.IcePit, archetype.Options{ID: "ice-pit-1"})
	handler := TrapResourceHandler(newFakeTrapAPI(icePit))

	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{name: "known", uri: "trap://ice-pit-1"},
		{name: "unknown", uri: "trap://missing", wantErr: true},
		{name: "template placeholder", uri: "trap://{trap_id}", wantErr: true},
		{name: "wrong scheme", uri: "traps://ice-pit-1", wantErr: true},
		{name: "nested path", uri: "trap://ice-pit-1/extra", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handler(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: tt.uri}})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			var def trap.Definition
			if err := json.Unmarshal([]byte(res.Contents[0].Text), &def); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if def.ID != "ice-pit-1" || res.Contents[0].MIMEType != "application/json" {
				t.Fatalf("resource = %+v", res.Contents[0])
			}
		})
	}
}
