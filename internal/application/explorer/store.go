package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/MetaboScope/pkg/errors"
)

// SessionStore persists the current snapshot of each session.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Snapshot, error)
	Put(ctx context.Context, sessionID string, snap *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// SnapshotRecord is a named, saved snapshot of a session.
type SnapshotRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Snapshot  Snapshot  `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotRepository keeps saved snapshots for later restore.
type SnapshotRepository interface {
	Save(ctx context.Context, rec *SnapshotRecord) error
	Get(ctx context.Context, id string) (*SnapshotRecord, error)
	List(ctx context.Context, sessionID string, limit int) ([]*SnapshotRecord, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-process SessionStore. Entries are replaced whole
// under the lock, so readers never see a partial update.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.New(errors.CodeSessionNotFound, "session not found").WithDetail("id=" + sessionID)
	}
	out := *snap
	out.Settings = snap.Settings.Clone()
	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, sessionID string, snap *Snapshot) error {
	if snap == nil {
		return errors.InvalidParam("snapshot is nil")
	}
	stored := *snap
	stored.Settings = snap.Settings.Clone()
	m.mu.Lock()
	m.sessions[sessionID] = &stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return errors.New(errors.CodeSessionNotFound, "session not found").WithDetail("id=" + sessionID)
	}
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
