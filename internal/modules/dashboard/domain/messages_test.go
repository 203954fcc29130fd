package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRxWireShape(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(SnapshotMessage(MustDocument(map[string]any{"active": false})))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_snapshot":{"active":false}}`, string(raw))

	patch, err := DecodePatch([]byte(`[{"op":"replace","path":"/active","value":true}]`))
	require.NoError(t, err)
	raw, err = json.Marshal(PatchMessage(patch))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_patch":[{"op":"replace","path":"/active","value":true}]}`, string(raw))

	raw, err = json.Marshal(LayoutMessage(EncodeLayout(Text{})))
	require.NoError(t, err)
	assert.JSONEq(t, `{"layout":{"version":"v0","layout":[{"ui":"text"}]}}`, string(raw))
}

func TestDecodeRx(t *testing.T) {
	t.Parallel()

	msg, err := DecodeRx([]byte(`{"data_snapshot":{"n":1.50}}`))
	require.NoError(t, err)
	assert.Equal(t, RxDataSnapshot, msg.Kind)
	v, err := msg.Snapshot.Lookup("/n")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.50"), v)

	msg, err = DecodeRx([]byte(`{"data_patch":[{"op":"remove","path":"/n"}]}`))
	require.NoError(t, err)
	assert.Equal(t, RxDataPatch, msg.Kind)
	assert.Len(t, msg.Patch, 1)

	_, err = DecodeRx([]byte(`{"layout":{"version":"v7","layout":[]}}`))
	var verr *UnknownLayoutVersionError
	assert.ErrorAs(t, err, &verr)

	for _, bad := range []string{
		`{}`,
		`[]`,
		`{"data_snapshot":{},"data_patch":[]}`,
		`{"data_delta":[]}`,
		`{"data_patch":{"op":"add"}}`,
	} {
		_, err := DecodeRx([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedMessage, bad)
	}
}

func TestDashboardTxWireShape(t *testing.T) {
	t.Parallel()

	tx := MustMsg(map[string]any{"action": "save"})
	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":{"template":{"action":"save"}}}`, string(raw))

	decoded, err := DecodeTx(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"save"}`, string(decoded.Template))
	assert.True(t, IsTx(raw))
	assert.False(t, IsTx([]byte(`{"action":"resync"}`)))

	_, err = DecodeTx([]byte(`{"msg":{}}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestResolveTemplate(t *testing.T) {
	t.Parallel()

	doc := MustDocument(map[string]any{"current_id": 42, "user": map[string]any{"name": "ana"}})
	tx := MustMsg(map[string]any{
		"action": "save",
		"id":     Pointer[json.Number]("/current_id"),
		"meta": []any{
			Fixed("literal"),
			map[string]any{"who": Pointer[string]("/user/name")},
		},
	})

	resolved, err := ResolveTemplate(tx.Template, doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"save","id":42,"meta":["literal",{"who":"ana"}]}`, string(resolved))

	paths, err := TemplatePointers(tx.Template)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/current_id", "/user/name"}, paths)
}

func TestResolveTemplateAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	doc := MustDocument(map[string]any{"a": 1})
	tx := MustMsg(map[string]any{"ok": Pointer[json.Number]("/a"), "bad": Pointer[string]("/missing")})

	resolved, err := ResolveTemplate(tx.Template, doc)
	assert.Nil(t, resolved)
	var perr *PointerResolutionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/missing", perr.Path)
}

func TestMergeFormValues(t *testing.T) {
	t.Parallel()

	form := Form{
		Fields: InputFields{
			TextInputField{Name: "title", Label: "Title"},
			CheckBoxInputField{Name: "urgent", Label: "Urgent"},
		},
		OnSubmit: Some(MustMsg(map[string]any{"action": "create", "owner": Pointer[string]("/me")})),
	}

	merged, err := MergeFormValues(form, map[string]any{"title": "Leak", "ignored": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"create","owner":{"pointer":"/me"},"title":"Leak"}`, string(merged))

	resolved, err := ResolveTemplate(merged, MustDocument(map[string]any{"me": "op-7"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"create","owner":"op-7","title":"Leak"}`, string(resolved))

	form.OnSubmit = Some(MustMsg([]any{1}))
	_, err = MergeFormValues(form, nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestInputFieldsDecode(t *testing.T) {
	t.Parallel()

	var fields InputFields
	err := json.Unmarshal([]byte(`[
		{"kind":"text","name":"a","label":"A"},
		{"kind":"select","name":"b","label":"B","options":[{"text":"x","value":"1"}]}
	]`), &fields)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "b", fields[1].FieldName())

	err = json.Unmarshal([]byte(`[{"kind":"slider","name":"c","label":"C"}]`), &fields)
	var kerr *UnknownNodeKindError
	assert.ErrorAs(t, err, &kerr)
}
