// Package registry holds the live trap set and persists it as one blob in the
// settings store.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
)

// Registry is the in-memory trap set. Every mutation re-serializes the full
// set to the settings store and becomes visible only once the write succeeds.
type Registry struct {
	store settings.Store

	mu       sync.RWMutex
	traps    map[string]trap.Definition
	inflight map[string]struct{}

	// saveMu serializes mutations with their snapshot writes.
	saveMu sync.Mutex
}

// New creates an empty registry backed by store.
func New(store settings.Store) *Registry {
	return &Registry{
		store:    store,
		traps:    map[string]trap.Definition{},
		inflight: map[string]struct{}{},
	}
}

// Load replaces the live set with the persisted blob. An absent or empty blob
// yields an empty set; unreadable or malformed blobs are logged and also
// yield an empty set. Loading twice gives the same set.
func (r *Registry) Load(ctx context.Context) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	loaded := map[string]trap.Definition{}
	defer func() {
		r.mu.Lock()
		r.traps = loaded
		r.mu.Unlock()
	}()

	raw, err := r.store.Get(ctx, settings.Namespace, settings.KeySavedTraps)
	if errors.Is(err, settings.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("registry: read saved traps: %v", err)
		return
	}
	if strings.TrimSpace(raw) == "" {
		return
	}

	var defs []trap.Definition
	if err := json.Unmarshal([]byte(raw), &defs); err != nil {
		log.Printf("registry: decode saved traps: %v", err)
		return
	}
	for _, def := range defs {
		if strings.TrimSpace(def.ID) == "" {
			log.Printf("registry: skip saved trap without id (%q)", def.Name)
			continue
		}
		loaded[def.ID] = def.Clone()
	}
}

// Save writes the full set to the settings store.
func (r *Registry) Save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	return r.persist(ctx, r.All())
}

func (r *Registry) persist(ctx context.Context, set map[string]trap.Definition) error {
	payload, err := json.Marshal(sortedDefs(set))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTrapPersistence, "encode saved traps", err)
	}
	if err := r.store.Set(ctx, settings.Namespace, settings.KeySavedTraps, string(payload)); err != nil {
		return apperrors.Wrap(apperrors.CodeTrapPersistence, fmt.Sprintf("save traps: %v", err), err)
	}
	return nil
}

// update applies fn to a copy of the live set, persists the copy and only
// then swaps it in. When fn reports no change nothing is written. A failed
// write leaves the live set untouched.
func (r *Registry) update(ctx context.Context, fn func(next map[string]trap.Definition) (bool, error)) (bool, error) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	next := r.All()
	changed, err := fn(next)
	if err != nil || !changed {
		return false, err
	}
	if err := r.persist(ctx, next); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.traps = next
	r.mu.Unlock()
	return true, nil
}

// Register inserts or overwrites def by id and persists.
func (r *Registry) Register(ctx context.Context, def trap.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := r.update(ctx, func(next map[string]trap.Definition) (bool, error) {
		next[def.ID] = def.Clone()
		return true, nil
	}); err != nil {
		return err
	}
	log.Printf("registry: registered trap %s (%s)", def.Name, def.ID)
	return nil
}

// Get returns a copy of the trap with id.
func (r *Registry) Get(trapID string) (trap.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.traps[trapID]
	if !ok {
		return trap.Definition{}, false
	}
	return def.Clone(), true
}

// All returns a copy of the live set keyed by id.
func (r *Registry) All() map[string]trap.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]trap.Definition, len(r.traps))
	for trapID, def := range r.traps {
		out[trapID] = def.Clone()
	}
	return out
}

// List returns copies of every trap in id order.
func (r *Registry) List() []trap.Definition {
	return sortedDefs(r.All())
}

func sortedDefs(set map[string]trap.Definition) []trap.Definition {
	out := make([]trap.Definition, 0, len(set))
	for _, def := range set {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every trap id in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.traps))
	for trapID := range r.traps {
		out = append(out, trapID)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of traps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.traps)
}

// MarkTriggered sets the triggered flag and persists. The flag never resets.
func (r *Registry) MarkTriggered(ctx context.Context, trapID string) error {
	_, err := r.mutate(ctx, trapID, func(def *trap.Definition) bool {
		if def.Triggered {
			return false
		}
		def.Triggered = true
		return true
	})
	return err
}

// MarkRevealed flips visible to true once and persists. It reports whether
// this call revealed the trap.
func (r *Registry) MarkRevealed(ctx context.Context, trapID string) (bool, error) {
	return r.mutate(ctx, trapID, func(def *trap.Definition) bool {
		if def.Visible {
			return false
		}
		def.Visible = true
		return true
	})
}

func (r *Registry) mutate(ctx context.Context, trapID string, fn func(*trap.Definition) bool) (bool, error) {
	return r.update(ctx, func(next map[string]trap.Definition) (bool, error) {
		def, ok := next[trapID]
		if !ok {
			return false, apperrors.New(apperrors.CodeTrapNotFound, fmt.Sprintf("trap %s not found", trapID))
		}
		if !fn(&def) {
			return false, nil
		}
		next[trapID] = def
		return true, nil
	})
}

// Acquire claims the in-flight slot for trapID. The second concurrent caller
// gets ok == false until release runs.
func (r *Registry) Acquire(trapID string) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[trapID]; busy {
		return func() {}, false
	}
	r.inflight[trapID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.inflight, trapID)
			r.mu.Unlock()
		})
	}, true
}

// Suggest returns the registered id closest to trapID by edit distance, when
// within maxDistance.
func (r *Registry) Suggest(trapID string, maxDistance int) (string, bool) {
	best := ""
	bestDistance := maxDistance + 1
	for _, candidate := range r.IDs() {
		distance := levenshtein.ComputeDistance(trapID, candidate)
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best, best != ""
}
