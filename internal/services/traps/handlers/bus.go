// Package handlers reacts to resolved traps with presentation: cues,
// flavored chat messages and delayed notices. Handlers never change
// registry or actor state.
package handlers

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// Event is the archetype broadcast published after a trap resolves.
type Event struct {
	Name        string          `json:"name"`
	Archetype   string          `json:"archetype"`
	Trap        trap.Definition `json:"trap"`
	Token       scene.Token     `json:"token"`
	Actor       scene.Actor     `json:"actor"`
	Damage      int             `json:"damage"`
	SaveSuccess bool            `json:"saveSuccess"`
}

// NewEvent builds the broadcast for an archetype tag.
func NewEvent(tag string, def trap.Definition, token scene.Token, actor scene.Actor, damage int, saveSuccess bool) Event {
	return Event{
		Name:        archetype.EventName(tag),
		Archetype:   tag,
		Trap:        def,
		Token:       token,
		Actor:       actor,
		Damage:      damage,
		SaveSuccess: saveSuccess,
	}
}

// Handler reacts to one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Bus fans events out to the handlers subscribed for their archetype.
type Bus struct {
	mu         sync.RWMutex
	byTag      map[string][]Handler
	everything []Handler
	draining   bool
	wg         sync.WaitGroup
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{byTag: make(map[string][]Handler)}
}

// Subscribe registers h for events of the archetype tag.
func (b *Bus) Subscribe(tag string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byTag[tag] = append(b.byTag[tag], h)
}

// SubscribeAll registers h for every event regardless of archetype.
func (b *Bus) SubscribeAll(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.everything = append(b.everything, h)
}

// Subscribed reports whether any archetype handler is registered for tag.
func (b *Bus) Subscribed(tag string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byTag[tag]) > 0
}

// Publish runs every matching handler on its own goroutine and returns
// without waiting. The handlers outlive ctx cancellation but keep its values.
// Events published once Drain has started are dropped.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.draining {
		log.Printf("drop %s for trap %s: bus is draining", ev.Name, ev.Trap.ID)
		return
	}
	targets := make([]Handler, 0, len(b.byTag[ev.Archetype])+len(b.everything))
	targets = append(targets, b.byTag[ev.Archetype]...)
	targets = append(targets, b.everything...)
	if len(targets) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	b.wg.Add(len(targets))
	for _, h := range targets {
		go func(h Handler) {
			defer b.wg.Done()
			if err := h.Handle(detached, ev); err != nil {
				log.Printf("handle %s for trap %s: %v", ev.Name, ev.Trap.ID, err)
			}
		}(h)
	}
}

// Drain stops accepting events and blocks until every published handler has
// returned.
func (b *Bus) Drain() {
	b.mu.Lock()
	b.draining = true
	b.mu.Unlock()
	b.wg.Wait()
}
