package assistant

import (
	"context"
	"sync"
	"time"
)

// MemoryHistory держит диалоги в памяти процесса
type MemoryHistory struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{sessions: make(map[string][]Turn)}
}

func (m *MemoryHistory) Turns(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts := m.sessions[sessionID]
	out := make([]Turn, len(ts))
	copy(out, ts)
	return out, nil
}

// Append добавляет реплики одним куском, пары user/assistant не перемешиваются
func (m *MemoryHistory) Append(_ context.Context, sessionID string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], turns...)
	return nil
}

func (m *MemoryHistory) Reset(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryHistory) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, ts := range m.sessions {
		kept := ts[:0]
		for _, t := range ts {
			if t.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(m.sessions, id)
			continue
		}
		m.sessions[id] = kept
	}
	return removed, nil
}
