package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/louisbranch/trapmacros/internal/platform/id"
)

// File is the JSON layout of a scene file.
type File struct {
	Grid   float64 `json:"grid"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Tokens []Token `json:"tokens"`
	Actors []Actor `json:"actors"`
}

// Memory is an in-process scene implementing Tokens and Actors.
type Memory struct {
	mu       sync.RWMutex
	dims     Dimensions
	order    []string
	tokens   map[string]Token
	actors   map[string]Actor
	watchers []func(Token)
}

// NewMemory builds a scene from file contents.
func NewMemory(file File) *Memory {
	dims := Dimensions{Grid: file.Grid, Width: file.Width, Height: file.Height}
	if dims.Grid <= 0 {
		dims.Grid = DefaultGrid
	}
	if dims.Width <= 0 {
		dims.Width = DefaultSize
	}
	if dims.Height <= 0 {
		dims.Height = DefaultSize
	}
	m := &Memory{
		dims:   dims,
		tokens: make(map[string]Token, len(file.Tokens)),
		actors: make(map[string]Actor, len(file.Actors)),
	}
	for _, token := range file.Tokens {
		if _, exists := m.tokens[token.ID]; !exists {
			m.order = append(m.order, token.ID)
		}
		m.tokens[token.ID] = cloneToken(token)
	}
	for _, actor := range file.Actors {
		m.actors[actor.ID] = cloneActor(actor)
	}
	return m
}

// LoadFile reads a scene JSON file. An empty path yields an empty scene.
func LoadFile(path string) (*Memory, error) {
	if strings.TrimSpace(path) == "" {
		return NewMemory(File{}), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}
	return NewMemory(file), nil
}

// Watch registers fn to observe every token change. fn runs outside the lock.
func (m *Memory) Watch(fn func(Token)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

func (m *Memory) notify(token Token) {
	m.mu.RLock()
	watchers := append([]func(Token){}, m.watchers...)
	m.mu.RUnlock()
	for _, fn := range watchers {
		fn(cloneToken(token))
	}
}

// Dimensions returns the canvas dimensions.
func (m *Memory) Dimensions() Dimensions {
	return m.dims
}

// Token returns one token.
func (m *Memory) Token(_ context.Context, tokenID string) (Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[tokenID]
	if !ok {
		return Token{}, fmt.Errorf("token %s: %w", tokenID, ErrTokenNotFound)
	}
	return cloneToken(token), nil
}

// Tokens returns every token in insertion order.
func (m *Memory) Tokens(_ context.Context) ([]Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Token, 0, len(m.order))
	for _, tokenID := range m.order {
		out = append(out, cloneToken(m.tokens[tokenID]))
	}
	return out, nil
}

// SetHidden sets the token's hidden flag. Unchanged values are not broadcast.
func (m *Memory) SetHidden(_ context.Context, tokenID string, hidden bool) error {
	m.mu.Lock()
	token, ok := m.tokens[tokenID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("token %s: %w", tokenID, ErrTokenNotFound)
	}
	changed := token.Hidden != hidden
	token.Hidden = hidden
	m.tokens[tokenID] = token
	m.mu.Unlock()

	if changed {
		m.notify(token)
	}
	return nil
}

// Move places the token at to.
func (m *Memory) Move(_ context.Context, tokenID string, to Point) (Token, error) {
	m.mu.Lock()
	token, ok := m.tokens[tokenID]
	if !ok {
		m.mu.Unlock()
		return Token{}, fmt.Errorf("token %s: %w", tokenID, ErrTokenNotFound)
	}
	token.X, token.Y = to.X, to.Y
	m.tokens[tokenID] = token
	m.mu.Unlock()

	m.notify(token)
	return cloneToken(token), nil
}

// Create adds a token, generating an id when empty.
func (m *Memory) Create(_ context.Context, token Token) (Token, error) {
	if strings.TrimSpace(token.ID) == "" {
		tokenID, err := id.NewID()
		if err != nil {
			return Token{}, err
		}
		token.ID = tokenID
	}
	if token.Width <= 0 {
		token.Width = 1
	}
	if token.Height <= 0 {
		token.Height = 1
	}

	m.mu.Lock()
	if _, exists := m.tokens[token.ID]; exists {
		m.mu.Unlock()
		return Token{}, fmt.Errorf("token %s already exists", token.ID)
	}
	m.tokens[token.ID] = cloneToken(token)
	m.order = append(m.order, token.ID)
	m.mu.Unlock()

	m.notify(token)
	return cloneToken(token), nil
}

// Actor returns one actor.
func (m *Memory) Actor(_ context.Context, actorID string) (Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actor, ok := m.actors[actorID]
	if !ok {
		return Actor{}, fmt.Errorf("actor %s: %w", actorID, ErrActorNotFound)
	}
	return cloneActor(actor), nil
}

// Update replaces an existing actor.
func (m *Memory) Update(_ context.Context, actor Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actors[actor.ID]; !ok {
		return fmt.Errorf("actor %s: %w", actor.ID, ErrActorNotFound)
	}
	m.actors[actor.ID] = cloneActor(actor)
	return nil
}

func cloneToken(token Token) Token {
	out := token
	out.Owners = append([]string(nil), token.Owners...)
	if token.Flags != nil {
		out.Flags = make(map[string]string, len(token.Flags))
		for k, v := range token.Flags {
			out.Flags[k] = v
		}
	}
	return out
}

func cloneActor(actor Actor) Actor {
	out := actor
	out.Abilities = cloneInts(actor.Abilities)
	out.Saves = cloneInts(actor.Saves)
	out.Traits = cloneInts(actor.Traits)
	out.Resistances = cloneInts(actor.Resistances)
	out.Weaknesses = cloneInts(actor.Weaknesses)
	if actor.Effects != nil {
		out.Effects = make([]ActiveEffect, len(actor.Effects))
		for i, effect := range actor.Effects {
			out.Effects[i] = effect
			out.Effects[i].Changes = append([]EffectChange(nil), effect.Changes...)
			if effect.Duration != nil {
				duration := *effect.Duration
				out.Effects[i].Duration = &duration
			}
		}
	}
	return out
}

func cloneInts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
