package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/domain"
)

type recordingSender struct {
	sent []domain.DashboardTx
	err  error
}

func (s *recordingSender) Send(_ context.Context, tx domain.DashboardTx) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, tx)
	return nil
}

func syncedSession(t *testing.T, doc map[string]any) *Session {
	t.Helper()
	s := NewSession("test", nil)
	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(doc))))
	return s
}

func TestDispatchClickResolvesPointers(t *testing.T) {
	t.Parallel()

	button := domain.Button{
		Value: domain.Some(domain.Fixed("Save")),
		OnClick: domain.Some(domain.MustMsg(map[string]any{
			"action": "save",
			"id":     domain.Pointer[json.Number]("/current_id"),
		})),
	}
	sender := &recordingSender{}
	uc := NewDispatchUseCase(syncedSession(t, map[string]any{"current_id": 42}), sender)

	tx, err := uc.Click(context.Background(), button.OnClick)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"save","id":42}`, string(tx.Template))
	require.Len(t, sender.sent, 1)

	raw, err := json.Marshal(sender.sent[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":{"template":{"action":"save","id":42}}}`, string(raw))
}

func TestDispatchClickSendsNothingOnUnresolvedPointer(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	uc := NewDispatchUseCase(syncedSession(t, map[string]any{}), sender)

	_, err := uc.Click(context.Background(), domain.Some(domain.MustMsg(map[string]any{"id": domain.Pointer[string]("/missing")})))
	assert.ErrorIs(t, err, domain.ErrPointerNotFound)
	assert.Empty(t, sender.sent)

	_, err = uc.Click(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAction)
}

func TestDispatchSubmitMergesFields(t *testing.T) {
	t.Parallel()

	form := domain.Form{
		Fields: domain.InputFields{
			domain.TextInputField{Name: "title", Label: "Title"},
			domain.NewSelectField("level", "Level", domain.SelectOption{Text: "Low", Value: "low"}),
		},
		OnSubmit: domain.Some(domain.MustMsg(map[string]any{"action": "create", "site": domain.Pointer[string]("/site")})),
	}
	sender := &recordingSender{}
	uc := NewDispatchUseCase(syncedSession(t, map[string]any{"site": "north"}), sender)

	tx, err := uc.Submit(context.Background(), form, map[string]any{"title": "Leak", "level": "low"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"create","site":"north","title":"Leak","level":"low"}`, string(tx.Template))
	assert.Len(t, sender.sent, 1)
}

func TestDispatchReportsSenderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel closed")
	uc := NewDispatchUseCase(syncedSession(t, map[string]any{}), &recordingSender{err: boom})

	_, err := uc.Click(context.Background(), domain.Some(domain.MustMsg(map[string]any{"action": "ping"})))
	assert.ErrorIs(t, err, boom)
}

func TestDispatchRequiresSnapshot(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	session := NewSession("test", nil)
	uc := NewDispatchUseCase(session, sender)

	_, err := uc.Click(context.Background(), domain.Some(domain.MustMsg(map[string]any{"whole": domain.Pointer[any]("")})))
	var oerr *domain.ProtocolOrderingError
	require.ErrorAs(t, err, &oerr)

	_, err = uc.ClickAt(context.Background(), "/0")
	require.ErrorAs(t, err, &oerr)
	assert.Empty(t, sender.sent)
}

func TestDispatchAtLayoutPath(t *testing.T) {
	t.Parallel()

	layout := domain.EncodeLayout(
		domain.Grid{Children: domain.Nodes{
			domain.Text{Value: domain.Some(domain.Fixed("controls"))},
			domain.Button{OnClick: domain.Some(domain.MustMsg(map[string]any{"action": "start", "site": domain.Pointer[string]("/site")}))},
		}},
		domain.Form{
			Fields:   domain.InputFields{domain.TextInputField{Name: "note", Label: "Note"}},
			OnSubmit: domain.Some(domain.MustMsg(map[string]any{"action": "note"})),
		},
	)
	session := syncedSession(t, map[string]any{"site": "north"})
	require.NoError(t, session.Apply(domain.LayoutMessage(layout)))
	sender := &recordingSender{}
	uc := NewDispatchUseCase(session, sender)

	tx, err := uc.ClickAt(context.Background(), "/0/children/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"start","site":"north"}`, string(tx.Template))

	tx, err = uc.SubmitAt(context.Background(), "/1", map[string]any{"note": "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"note","note":"ok"}`, string(tx.Template))
	assert.Len(t, sender.sent, 2)

	_, err = uc.ClickAt(context.Background(), "/0/children/0")
	assert.ErrorIs(t, err, ErrNoAction)
	_, err = uc.SubmitAt(context.Background(), "/0", nil)
	assert.ErrorIs(t, err, ErrNoAction)
	_, err = uc.ClickAt(context.Background(), "/9")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
