package certstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// HiddenNames is the sorted set of certificate common names the user chose
// to ignore. Membership is exact string equality. Every mutation is written
// through to the NameStore before it is reported as done.
type HiddenNames struct {
	names []string
	store NameStore
}

// NewHiddenNames creates an empty set backed by store. A nil store keeps the
// set in memory only.
func NewHiddenNames(store NameStore) *HiddenNames {
	return &HiddenNames{store: store}
}

// Load replaces the in-memory set with the persisted one. A failing store
// leaves the set empty so that warnings keep showing; the error is logged
// and returned for the caller's information.
func (h *HiddenNames) Load(ctx context.Context) error {
	h.names = nil
	if h.store == nil {
		return nil
	}
	names, err := h.store.LoadNames(ctx)
	if err != nil {
		slog.Warn("loading hidden common names, starting with an empty set", "error", err)
		return fmt.Errorf("loading hidden common names: %w", err)
	}
	for _, name := range names {
		if i, found := slices.BinarySearch(h.names, name); !found {
			h.names = slices.Insert(h.names, i, name)
		}
	}
	slog.Debug("loaded hidden common names", "count", len(h.names))
	return nil
}

// Contains reports whether name is hidden. A nil set hides nothing.
func (h *HiddenNames) Contains(name string) bool {
	if h == nil {
		return false
	}
	_, found := slices.BinarySearch(h.names, name)
	return found
}

// Names returns a sorted copy of the set.
func (h *HiddenNames) Names() []string {
	if h == nil {
		return []string{}
	}
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of hidden names. A nil set is empty.
func (h *HiddenNames) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Add hides name. It reports false without touching the store when the name
// is already hidden. If persisting fails the insertion is undone.
func (h *HiddenNames) Add(ctx context.Context, name string) (bool, error) {
	i, found := slices.BinarySearch(h.names, name)
	if found {
		return false, nil
	}
	prev := h.names
	h.names = slices.Insert(slices.Clone(h.names), i, name)
	if err := h.persist(ctx); err != nil {
		h.names = prev
		return false, fmt.Errorf("hiding %q: %w", name, err)
	}
	return true, nil
}

// Remove unhides name, keeping every other entry. It reports false without
// touching the store when the name is not hidden. If persisting fails the
// removal is undone.
func (h *HiddenNames) Remove(ctx context.Context, name string) (bool, error) {
	i, found := slices.BinarySearch(h.names, name)
	if !found {
		return false, nil
	}
	prev := h.names
	h.names = slices.Delete(slices.Clone(h.names), i, i+1)
	if err := h.persist(ctx); err != nil {
		h.names = prev
		return false, fmt.Errorf("unhiding %q: %w", name, err)
	}
	return true, nil
}

func (h *HiddenNames) persist(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	if err := h.store.SaveNames(ctx, h.Names()); err != nil {
		return fmt.Errorf("saving hidden common names: %w", err)
	}
	return nil
}
