package kafka

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/internal/testutil"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

type recordingWriter struct {
	msgs []*Message
	err  error
}

func (w *recordingWriter) Publish(_ context.Context, msg *Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msg)
	return nil
}

func scrape(t *testing.T, collector prometheus.MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	return w.Body.String()
}

func TestEventPublisher_Envelope(t *testing.T) {
	w := &recordingWriter{}
	p := newEventPublisher(w, "", nil)

	err := p.Publish(context.Background(), explorer.Event{
		Type:      explorer.EventSelectionChanged,
		SessionID: "s1",
		Payload:   explorer.SelectionChangedPayload{Action: "set_filter", Settings: explorer.DefaultSettings()},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "metaboscope.selection.changed", msg.Topic)
	assert.Equal(t, []byte("s1"), msg.Key)
	assert.Equal(t, "s1", msg.Headers["session_id"])

	env, err := MessageToEventEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, "metaboscope", env.Source)
	assert.Equal(t, "s1", env.Metadata["session_id"])
	var payload explorer.SelectionChangedPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "set_filter", payload.Action)
	assert.True(t, payload.Settings.Filter)
}

func TestEventPublisher_Metrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	ok := newEventPublisher(&recordingWriter{}, "", nil).WithMetrics(metrics)
	failing := newEventPublisher(&recordingWriter{err: errors.New("down")}, "", nil).WithMetrics(metrics)
	ev := explorer.Event{Type: explorer.EventModelCleaned, SessionID: "s1"}

	require.NoError(t, ok.Publish(context.Background(), ev))
	assert.Error(t, failing.Publish(context.Background(), ev))

	body := scrape(t, collector)
	assert.Contains(t, body, `test_events_published_total{status="success",type="model.cleaned"} 1`)
	assert.Contains(t, body, `test_events_published_total{status="failure",type="model.cleaned"} 1`)
}

func TestEventPublisher_BacksManager(t *testing.T) {
	w := &recordingWriter{}
	log := testutil.NewMockLogger()
	m := explorer.NewManager(explorer.NewService(nil, nil), explorer.NewMemoryStore(), log,
		explorer.WithPublisher(newEventPublisher(w, "lab", log)))
	ctx := context.Background()

	id, _, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = m.LoadModel(ctx, id, testutil.SmallModel())
	require.NoError(t, err)
	_, err = m.ToggleSelection(ctx, id, metabolic.Selection{Attribute: metabolic.AttributeCompartments, Value: "m"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "lab.model.cleaned", w.msgs[0].Topic)
	assert.Equal(t, "lab.selection.changed", w.msgs[1].Topic)
}
