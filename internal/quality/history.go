package quality

import (
	"sync"
	"time"
)

// HistoryStore keeps a bounded per-symbol log of past validation samples.
// Eviction is FIFO on count, not time-based, so burst traffic cannot starve
// the ring prematurely.
type HistoryStore struct {
	mu         sync.RWMutex
	entries    map[string][]HistoryEntry
	maxEntries int
}

// NewHistoryStore creates a history store capping each symbol at maxEntries.
func NewHistoryStore(maxEntries int) *HistoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultHistoryLimit
	}
	return &HistoryStore{
		entries:    make(map[string][]HistoryEntry),
		maxEntries: maxEntries,
	}
}

// Append records an entry for a symbol, evicting the oldest when the ring is
// full.
func (h *HistoryStore) Append(symbol string, entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.entries[symbol], entry)
	if len(entries) > h.maxEntries {
		entries = entries[len(entries)-h.maxEntries:]
	}
	h.entries[symbol] = entries
}

// Latest returns the most recent entry for a symbol.
func (h *HistoryStore) Latest(symbol string) (*HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.entries[symbol]
	if len(entries) == 0 {
		return nil, false
	}
	entry := entries[len(entries)-1]
	return &entry, true
}

// RecentWindow returns up to n most recent entries, oldest first.
func (h *HistoryStore) RecentWindow(symbol string, n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.entries[symbol]
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]HistoryEntry, n)
	copy(out, entries[len(entries)-n:])
	return out
}

// Since returns all entries newer than the cutoff, oldest first.
func (h *HistoryStore) Since(symbol string, cutoff time.Time) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.entries[symbol]
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of retained entries for a symbol.
func (h *HistoryStore) Len(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries[symbol])
}

// Remove drops a symbol's history entirely.
func (h *HistoryStore) Remove(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, symbol)
}
