package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// EventType names a pipeline event.
type EventType string

const (
	EventModelCleaned     EventType = "model.cleaned"
	EventSelectionChanged EventType = "selection.changed"
	EventSnapshotSaved    EventType = "snapshot.saved"
)

// Event is published after a session changes.
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

// ModelCleanedPayload summarizes a freshly loaded model.
type ModelCleanedPayload struct {
	Metabolites int                      `json:"metabolites"`
	Reactions   int                      `json:"reactions"`
	Diagnostics map[diagnostics.Code]int `json:"diagnostics"`
}

// SelectionChangedPayload carries the settings after a user action.
type SelectionChangedPayload struct {
	Action   string   `json:"action"`
	Settings Settings `json:"settings"`
}

// SnapshotSavedPayload identifies a saved snapshot.
type SnapshotSavedPayload struct {
	SnapshotID string `json:"snapshot_id"`
	Name       string `json:"name"`
}

// Publisher delivers events. Delivery failures never fail an action.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ModelArchive keeps a copy of every uploaded model document.
type ModelArchive interface {
	PutModel(ctx context.Context, key string, data []byte) error
}

// Locker serializes writers of one session across processes.
type Locker interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// SessionMetrics counts session outcomes.
type SessionMetrics interface {
	RecordModelLoad(err error)
	RecordSnapshotSave(err error)
	RecordSessionAction(action string, err error)
}

type nopSessionMetrics struct{}

func (nopSessionMetrics) RecordModelLoad(error)             {}
func (nopSessionMetrics) RecordSnapshotSave(error)          {}
func (nopSessionMetrics) RecordSessionAction(string, error) {}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPublisher publishes session events through p.
func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

// WithSnapshots enables named snapshots backed by repo.
func WithSnapshots(repo SnapshotRepository) ManagerOption {
	return func(m *Manager) { m.snapshots = repo }
}

// WithArchive archives uploaded models in a.
func WithArchive(a ModelArchive) ManagerOption {
	return func(m *Manager) { m.archive = a }
}

// WithLocker takes l around every session write. With a Locker configured
// the in-process State cache is bypassed, since other processes may write
// the same session.
func WithLocker(l Locker) ManagerOption {
	return func(m *Manager) { m.locker = l }
}

// WithMetrics records load, snapshot and action outcomes in sm.
func WithMetrics(sm SessionMetrics) ManagerOption {
	return func(m *Manager) {
		if sm != nil {
			m.metrics = sm
		}
	}
}

// WithDefaults sets the settings new sessions start with.
func WithDefaults(s Settings) ManagerOption {
	return func(m *Manager) { m.defaults = s.Clone() }
}

// Manager keeps explorer sessions. Actions on one session are serialized
// and each stores a complete replacement State.
type Manager struct {
	service   Service
	store     SessionStore
	snapshots SnapshotRepository
	publisher Publisher
	archive   ModelArchive
	locker    Locker
	metrics   SessionMetrics
	defaults  Settings
	logger    logging.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	states map[string]State
}

// NewManager creates a Manager over service and store.
func NewManager(service Service, store SessionStore, logger logging.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &Manager{
		service:  service,
		store:    store,
		metrics:  nopSessionMetrics{},
		defaults: DefaultSettings(),
		logger:   logger.Named("sessions"),
		locks:    make(map[string]*sync.Mutex),
		states:   make(map[string]State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create starts a session with the default settings.
func (m *Manager) Create(ctx context.Context) (string, State, error) {
	id := common.NewID().String()
	m.mu.Lock()
	defaults := m.defaults.Clone()
	m.mu.Unlock()
	st := m.service.New(defaults)
	if err := m.persist(ctx, id, st); err != nil {
		return "", State{}, err
	}
	m.logger.Info("session created", logging.String("session_id", id))
	return id, st, nil
}

// SetDefaults replaces the settings later sessions start with. Existing
// sessions keep theirs.
func (m *Manager) SetDefaults(s Settings) {
	m.mu.Lock()
	m.defaults = s.Clone()
	m.mu.Unlock()
}

// Get returns the current State of a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (State, error) {
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	defer unlock()
	return m.current(ctx, sessionID)
}

// Delete removes a session and forgets its local lock.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.states, sessionID)
	delete(m.locks, sessionID)
	m.mu.Unlock()
	return nil
}

// LoadModel cleans and assembles raw into the session, keeping its
// settings.
func (m *Manager) LoadModel(ctx context.Context, sessionID string, raw metabolic.RawModel) (_ State, err error) {
	defer func() { m.metrics.RecordModelLoad(err) }()
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	cur, err := m.current(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next, err := m.service.Load(raw, cur.Settings)
	if err != nil {
		return State{}, err
	}
	if err := m.persist(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	m.archiveModel(ctx, sessionID, raw, next.LoadedAt)
	m.publish(ctx, Event{Type: EventModelCleaned, SessionID: sessionID, Payload: ModelCleanedPayload{
		Metabolites: len(next.Model.Metabolites),
		Reactions:   len(next.Model.Reactions),
		Diagnostics: next.Diagnostics.Counts(),
	}})
	return next, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

// ToggleSelection toggles one filter selection.
func (m *Manager) ToggleSelection(ctx context.Context, sessionID string, sel metabolic.Selection) (State, error) {
	return m.update(ctx, sessionID, "toggle_selection", func(st State) (State, error) {
		return m.service.ToggleSelection(st, sel)
	})
}

// SetFilter enables or disables the filter.
func (m *Manager) SetFilter(ctx context.Context, sessionID string, enabled bool) (State, error) {
	return m.update(ctx, sessionID, "set_filter", func(st State) (State, error) {
		return m.service.SetFilter(st, enabled)
	})
}

// SetCompartmentalization switches compartment-level nodes on or off.
func (m *Manager) SetCompartmentalization(ctx context.Context, sessionID string, enabled bool) (State, error) {
	return m.update(ctx, sessionID, "set_compartmentalization", func(st State) (State, error) {
		return m.service.SetCompartmentalization(st, enabled)
	})
}

// ToggleSimplification hides or shows an entity in the network.
func (m *Manager) ToggleSimplification(ctx context.Context, sessionID string, entity metabolic.Entity, id, compartment string) (State, error) {
	return m.update(ctx, sessionID, "toggle_simplification", func(st State) (State, error) {
		return m.service.ToggleSimplification(st, entity, id, compartment)
	})
}

// SetSearch sets a summary search query.
func (m *Manager) SetSearch(ctx context.Context, sessionID string, entity metabolic.Entity, attr metabolic.Attribute, query string) (State, error) {
	return m.update(ctx, sessionID, "set_search", func(st State) (State, error) {
		return m.service.SetSearch(st, entity, attr, query)
	})
}

// SetSort sets a summary sort.
func (m *Manager) SetSort(ctx context.Context, sessionID string, entity metabolic.Entity, attr metabolic.Attribute, sortBy cardinality.Sort) (State, error) {
	return m.update(ctx, sessionID, "set_sort", func(st State) (State, error) {
		return m.service.SetSort(st, entity, attr, sortBy)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// SaveSnapshot stores the session's current state under name.
func (m *Manager) SaveSnapshot(ctx context.Context, sessionID, name string) (_ *SnapshotRecord, err error) {
	if m.snapshots == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "snapshot repository not configured")
	}
	defer func() { m.metrics.RecordSnapshotSave(err) }()
	st, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !st.Loaded() {
		return nil, errors.New(errors.ErrCodeModelNotLoaded, "no model loaded")
	}
	rec := &SnapshotRecord{
		ID:        common.NewID().String(),
		SessionID: sessionID,
		Name:      name,
		Snapshot:  st.Snapshot(),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.snapshots.Save(ctx, rec); err != nil {
		return nil, err
	}
	m.publish(ctx, Event{Type: EventSnapshotSaved, SessionID: sessionID, Payload: SnapshotSavedPayload{SnapshotID: rec.ID, Name: name}})
	return rec, nil
}

// RestoreSnapshot replaces the session state with a saved snapshot.
func (m *Manager) RestoreSnapshot(ctx context.Context, sessionID, snapshotID string) (State, error) {
	if m.snapshots == nil {
		return State{}, errors.New(errors.ErrCodeFeatureDisabled, "snapshot repository not configured")
	}
	rec, err := m.snapshots.Get(ctx, snapshotID)
	if err != nil {
		return State{}, err
	}
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	defer unlock()
	if _, err := m.current(ctx, sessionID); err != nil {
		return State{}, err
	}
	st, err := m.service.Restore(rec.Snapshot)
	if err != nil {
		return State{}, err
	}
	if err := m.persist(ctx, sessionID, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// ListSnapshots returns the newest snapshots of a session.
func (m *Manager) ListSnapshots(ctx context.Context, sessionID string, limit int) ([]*SnapshotRecord, error) {
	if m.snapshots == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "snapshot repository not configured")
	}
	return m.snapshots.List(ctx, sessionID, limit)
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

func (m *Manager) update(ctx context.Context, sessionID, action string, fn func(State) (State, error)) (_ State, err error) {
	defer func() { m.metrics.RecordSessionAction(action, err) }()
	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	cur, err := m.current(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next, err := fn(cur)
	if err != nil {
		return State{}, err
	}
	if err := m.persist(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	m.publish(ctx, Event{Type: EventSelectionChanged, SessionID: sessionID, Payload: SelectionChangedPayload{
		Action:   action,
		Settings: next.Settings.Clone(),
	}})
	return next, nil
}

// current returns the cached State or rebuilds it from the store.
func (m *Manager) current(ctx context.Context, sessionID string) (State, error) {
	if m.locker == nil {
		m.mu.Lock()
		st, ok := m.states[sessionID]
		m.mu.Unlock()
		if ok {
			return st, nil
		}
	}

	snap, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	st, err := m.service.Restore(*snap)
	if err != nil {
		return State{}, err
	}
	m.mu.Lock()
	m.states[sessionID] = st
	m.mu.Unlock()
	return st, nil
}

func (m *Manager) persist(ctx context.Context, sessionID string, st State) error {
	snap := st.Snapshot()
	if err := m.store.Put(ctx, sessionID, &snap); err != nil {
		return err
	}
	m.mu.Lock()
	m.states[sessionID] = st
	m.mu.Unlock()
	return nil
}

func (m *Manager) lock(ctx context.Context, sessionID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()
	l.Lock()
	if m.locker == nil {
		return l.Unlock, nil
	}
	release, err := m.locker.Acquire(ctx, sessionID)
	if err != nil {
		l.Unlock()
		return nil, err
	}
	return func() {
		release()
		l.Unlock()
	}, nil
}

func (m *Manager) publish(ctx context.Context, ev Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.Warn("failed to publish event",
			logging.String("type", string(ev.Type)),
			logging.String("session_id", ev.SessionID),
			logging.Err(err))
	}
}

func (m *Manager) archiveModel(ctx context.Context, sessionID string, raw metabolic.RawModel, at time.Time) {
	if m.archive == nil {
		return
	}
	data, err := json.Marshal(raw)
	if err != nil {
		m.logger.Warn("failed to encode model for archive", logging.Err(err))
		return
	}
	key := fmt.Sprintf("models/%s/%d.json", sessionID, at.UnixNano())
	if err := m.archive.PutModel(ctx, key, data); err != nil {
		m.logger.Warn("failed to archive model", logging.String("key", key), logging.Err(err))
	}
}
