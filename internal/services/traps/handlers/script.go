package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
)

// scriptEntry is the global function a trap script must define.
const scriptEntry = "on_trigger"

// Script is a Lua handler for one archetype. The script's on_trigger(event)
// receives the event as a table and may return a flavor message to post.
type Script struct {
	Archetype string
	Log       chat.Log

	mu    sync.Mutex
	state *lua.State
}

// NewScript compiles source and checks that it defines on_trigger.
func NewScript(archetype, source string, sink chat.Log) (*Script, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	if err := lua.LoadString(state, source); err != nil {
		return nil, fmt.Errorf("load %s script: %w", archetype, err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run %s script: %w", archetype, err)
	}
	state.Global(scriptEntry)
	defined := state.IsFunction(-1)
	state.Pop(1)
	if !defined {
		return nil, fmt.Errorf("%s script must define %s(event)", archetype, scriptEntry)
	}
	return &Script{Archetype: archetype, Log: sink, state: state}, nil
}

// LoadScripts compiles every <archetype>.lua file in dir. A missing dir
// yields no scripts.
func LoadScripts(dir string, sink chat.Log) ([]*Script, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, fmt.Errorf("glob scripts: %w", err)
	}
	sort.Strings(paths)
	scripts := make([]*Script, 0, len(paths))
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", path, err)
		}
		tag := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		script, err := NewScript(tag, string(source), sink)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// Handle implements Handler.
func (s *Script) Handle(ctx context.Context, ev Event) error {
	flavor, err := s.call(ev)
	if err != nil {
		return err
	}
	if flavor == "" || s.Log == nil {
		return nil
	}
	if err := s.Log.Post(ctx, chat.Message{
		Content: flavor,
		Speaker: ev.Trap.Name,
		Kind:    chat.KindFlavor,
	}); err != nil {
		return fmt.Errorf("post %s script message: %w", s.Archetype, err)
	}
	return nil
}

// call runs on_trigger; lua states are not safe for concurrent use.
func (s *Script) call(ev Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	top := s.state.Top()
	defer s.state.SetTop(top)

	s.state.Global(scriptEntry)
	pushEvent(s.state, ev)
	if err := s.state.ProtectedCall(1, 1, 0); err != nil {
		return "", fmt.Errorf("%s %s: %w", s.Archetype, scriptEntry, err)
	}
	if s.state.IsNil(-1) {
		return "", nil
	}
	flavor, ok := s.state.ToString(-1)
	if !ok {
		log.Printf("%s %s returned a non-string value; ignoring", s.Archetype, scriptEntry)
		return "", nil
	}
	return strings.TrimSpace(flavor), nil
}

func pushEvent(state *lua.State, ev Event) {
	state.NewTable()
	fields := map[string]string{
		"name":        ev.Name,
		"archetype":   ev.Archetype,
		"trap_id":     ev.Trap.ID,
		"trap_name":   ev.Trap.Name,
		"target_name": ev.Token.Name,
		"actor_name":  ev.Actor.Name,
	}
	if ev.Trap.Damage != nil {
		fields["damage_type"] = ev.Trap.Damage.Type
	}
	for key, value := range fields {
		state.PushString(value)
		state.SetField(-2, key)
	}
	state.PushInteger(ev.Damage)
	state.SetField(-2, "damage")
	state.PushBoolean(ev.SaveSuccess)
	state.SetField(-2, "save_success")
}
