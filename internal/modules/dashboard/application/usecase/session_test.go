package usecase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/domain"
)

func mustPatch(t *testing.T, raw string) domain.Patch {
	t.Helper()
	p, err := domain.DecodePatch([]byte(raw))
	require.NoError(t, err)
	return p
}

func TestSessionRejectsPatchBeforeSnapshot(t *testing.T) {
	t.Parallel()

	var reasons []error
	s := NewSession("test", func(reason error) { reasons = append(reasons, reason) })

	err := s.Apply(domain.PatchMessage(mustPatch(t, `[{"op":"add","path":"/a","value":1}]`)))
	var oerr *domain.ProtocolOrderingError
	require.ErrorAs(t, err, &oerr)
	assert.Len(t, reasons, 1)

	_, synced := s.Document()
	assert.False(t, synced)
}

func TestSessionFailedPatchAwaitsResync(t *testing.T) {
	t.Parallel()

	resyncs := 0
	s := NewSession("test", func(error) { resyncs++ })
	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(map[string]any{"a": 1}))))

	err := s.Apply(domain.PatchMessage(mustPatch(t, `[
		{"op":"replace","path":"/a","value":2},
		{"op":"remove","path":"/missing"}
	]`)))
	var perr *domain.PatchApplicationError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Index)
	assert.True(t, s.AwaitingResync())

	doc, _ := s.Document()
	assert.True(t, doc.Equal(domain.MustDocument(map[string]any{"a": 1})))

	// Later patches are dropped without asking again.
	err = s.Apply(domain.PatchMessage(mustPatch(t, `[{"op":"replace","path":"/a","value":3}]`)))
	var oerr *domain.ProtocolOrderingError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, 1, resyncs)

	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(map[string]any{"a": 10}))))
	assert.False(t, s.AwaitingResync())
	require.NoError(t, s.Apply(domain.PatchMessage(mustPatch(t, `[{"op":"replace","path":"/a","value":11}]`))))

	doc, _ = s.Document()
	v, err := doc.Lookup("/a")
	require.NoError(t, err)
	assert.Equal(t, json.Number("11"), v)
}

func TestSessionLayoutDoesNotTouchDocument(t *testing.T) {
	t.Parallel()

	s := NewSession("test", nil)
	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(map[string]any{"x": true}))))
	require.NoError(t, s.ApplyRaw([]byte(`{"layout":{"version":"v0","layout":[{"ui":"text"}]}}`)))

	layout, ok := s.Layout()
	require.True(t, ok)
	assert.Len(t, layout.Nodes, 1)
	doc, synced := s.Document()
	assert.True(t, synced)
	assert.True(t, doc.Equal(domain.MustDocument(map[string]any{"x": true})))
}

func TestSessionApplyRawLeavesStateOnBadFrames(t *testing.T) {
	t.Parallel()

	s := NewSession("test", nil)
	require.NoError(t, s.ApplyRaw([]byte(`{"layout":{"version":"v0","layout":[{"ui":"heading"}]}}`)))

	err := s.ApplyRaw([]byte(`{"layout":{"version":"v9","layout":[]}}`))
	var verr *domain.UnknownLayoutVersionError
	require.ErrorAs(t, err, &verr)

	err = s.ApplyRaw([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)

	layout, ok := s.Layout()
	require.True(t, ok)
	assert.Equal(t, domain.NodeKind("heading"), layout.Nodes[0].Kind())
}

func TestSessionResetRequiresSnapshot(t *testing.T) {
	t.Parallel()

	s := NewSession("test", nil)
	var applied []domain.RxKind
	s.OnApplied(func(k domain.RxKind) { applied = append(applied, k) })

	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(map[string]any{}))))
	s.Reset()

	_, synced := s.Document()
	assert.False(t, synced)
	_, ok := s.Layout()
	assert.False(t, ok)

	err := s.Apply(domain.PatchMessage(mustPatch(t, `[{"op":"add","path":"/a","value":1}]`)))
	var oerr *domain.ProtocolOrderingError
	assert.ErrorAs(t, err, &oerr)
	assert.Equal(t, []domain.RxKind{domain.RxDataSnapshot}, applied)
}

func TestSessionSnapshotIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewSession("test", nil)
	d := domain.MustDocument(map[string]any{"active": false, "pumps": []any{1, 2}})
	for range 2 {
		require.NoError(t, s.Apply(domain.SnapshotMessage(d)))
		doc, synced := s.Document()
		require.True(t, synced)
		assert.True(t, doc.Equal(d))
	}
}
