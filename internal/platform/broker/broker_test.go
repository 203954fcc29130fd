package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/domain"
)

func TestDecodeEventEnvelope(t *testing.T) {
	event, err := decodeEvent(kafka.Message{
		Topic: "dashboard.data",
		Value: []byte(`{"dashboardId":"Plant","message":{"data_patch":[{"op":"add","path":"/a","value":1}]},"metadata":{"source":"scada"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "plant", event.DashboardID)
	assert.Equal(t, "dashboard.data", event.Topic)
	assert.Equal(t, domain.RxDataPatch, event.Message.Kind)
	assert.Equal(t, "scada", event.Metadata["source"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestDecodeEventBareFrameUsesKey(t *testing.T) {
	event, err := decodeEvent(kafka.Message{
		Key:   []byte("ops"),
		Value: []byte(`{"data_snapshot":{"ok":true}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "ops", event.DashboardID)
	assert.Equal(t, domain.RxDataSnapshot, event.Message.Kind)

	event, err = decodeEvent(kafka.Message{
		Headers: []kafka.Header{{Key: "Dashboard", Value: []byte("hdr")}},
		Value:   []byte(`{"data_snapshot":{}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "hdr", event.DashboardID)
}

func TestDecodeEventRejects(t *testing.T) {
	_, err := decodeEvent(kafka.Message{Value: []byte(`{"data_snapshot":{}}`)})
	assert.ErrorIs(t, err, errNoDashboard)

	_, err = decodeEvent(kafka.Message{Key: []byte("d"), Value: []byte(`{"data_delta":[]}`)})
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestActionProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &ActionProducer{writer: w, topic: "dashboard.actions"}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := p.Publish(context.Background(), domain.Action{
		DashboardID:  "plant",
		ConnectionID: "c1",
		Template:     json.RawMessage(`{"action":"save","id":42}`),
		ReceivedAt:   at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "plant", string(w.msgs[0].Key))

	var decoded domain.Action
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.JSONEq(t, `{"action":"save","id":42}`, string(decoded.Template))
	assert.Equal(t, at, decoded.ReceivedAt)

	w.err = errors.New("leader not available")
	assert.ErrorIs(t, p.Publish(context.Background(), domain.Action{DashboardID: "plant"}), w.err)
}
