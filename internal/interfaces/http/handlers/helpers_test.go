package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memSnapshots is an in-memory snapshot repository.
type memSnapshots struct {
	mu   sync.Mutex
	recs map[string]*explorer.SnapshotRecord
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{recs: make(map[string]*explorer.SnapshotRecord)}
}

func (m *memSnapshots) Save(_ context.Context, rec *explorer.SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
	return nil
}

func (m *memSnapshots) Get(_ context.Context, id string) (*explorer.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeSnapshotNotFound, "snapshot not found")
	}
	return rec, nil
}

func (m *memSnapshots) List(_ context.Context, sessionID string, limit int) ([]*explorer.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*explorer.SnapshotRecord
	for _, rec := range m.recs {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSnapshots) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func newTestManager(opts ...explorer.ManagerOption) *explorer.Manager {
	return explorer.NewManager(explorer.NewService(nil, nil), explorer.NewMemoryStore(), testutil.NewMockLogger(), opts...)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		case []byte:
			buf.Write(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
