package redis

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

const sessionKeyPrefix = "session:"

// DefaultSessionTTL expires sessions nobody touched for a day.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore keeps explorer sessions in Redis so several server processes
// can serve the same session.
type SessionStore struct {
	cache   Cache
	ttl     time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	loads   singleflight.Group
}

var _ explorer.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore. A ttl of zero uses DefaultSessionTTL.
func NewSessionStore(cache Cache, ttl time.Duration, log logging.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SessionStore{cache: cache, ttl: ttl, logger: log}
}

// WithMetrics records hits and misses in m.
func (s *SessionStore) WithMetrics(m *prometheus.AppMetrics) *SessionStore {
	s.metrics = m
	return s
}

// Get loads a session snapshot. Concurrent loads of one session share a
// single round trip; each caller receives its own copy of the settings.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*explorer.Snapshot, error) {
	v, err, _ := s.loads.Do(sessionID, func() (interface{}, error) {
		var snap explorer.Snapshot
		if err := s.cache.Get(ctx, sessionKeyPrefix+sessionID, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			s.recordAccess(false)
			return nil, errors.New(errors.CodeSessionNotFound, "session not found").WithDetail("id=" + sessionID)
		}
		return nil, err
	}
	s.recordAccess(true)

	shared := v.(*explorer.Snapshot)
	out := *shared
	out.Settings = shared.Settings.Clone()
	return &out, nil
}

// Put replaces the session snapshot and refreshes its expiry.
func (s *SessionStore) Put(ctx context.Context, sessionID string, snap *explorer.Snapshot) error {
	if snap == nil {
		return errors.InvalidParam("snapshot is required")
	}
	return s.cache.Set(ctx, sessionKeyPrefix+sessionID, snap, s.ttl)
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.cache.Delete(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New(errors.CodeSessionNotFound, "session not found").WithDetail("id=" + sessionID)
	}
	return nil
}

// Count returns the number of stored sessions and updates the sessions gauge.
func (s *SessionStore) Count(ctx context.Context) (int64, error) {
	n, err := s.cache.CountByPrefix(ctx, sessionKeyPrefix)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.SessionsActive.WithLabelValues("redis").Set(float64(n))
	}
	return n, nil
}

func (s *SessionStore) recordAccess(hit bool) {
	if s.metrics != nil {
		prometheus.RecordCacheAccess(s.metrics, "sessions", hit)
	}
}
