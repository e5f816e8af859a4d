package store

import (
	"sync"

	"tickagent/internal/tick"
)

// Snapshot holds the current holdings as last seen by the service.
type Snapshot struct {
	mu   sync.Mutex
	list *JSONList[tick.Position]
}

func NewSnapshot(path string) *Snapshot {
	return &Snapshot{list: NewJSONList[tick.Position](path)}
}

func (s *Snapshot) Load() []tick.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Read()
}

func (s *Snapshot) Replace(positions []tick.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Write(positions)
}

// History is the append-only record of recommendations sent per tick.
type History struct {
	mu   sync.Mutex
	list *JSONList[tick.HistoryEntry]
}

func NewHistory(path string) *History {
	return &History{list: NewJSONList[tick.HistoryEntry](path)}
}

func (h *History) Load() []tick.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list.Read()
}

// Append rewrites the file with entry added at the end. Earlier entries are
// copied through as stored, and the read-append-write cycle holds the store
// lock, so concurrent appends are never lost.
func (h *History) Append(entry tick.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry.AIRecommendations == nil {
		entry.AIRecommendations = []tick.Trade{}
	}
	return h.list.Append(entry)
}
