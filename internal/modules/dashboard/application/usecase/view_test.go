package usecase

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/domain"
)

type stubConditions map[string]bool

func (s stubConditions) Evaluate(expression string, _ domain.Document) (bool, error) {
	v, ok := s[expression]
	if !ok {
		return false, errors.New("unknown condition")
	}
	return v, nil
}

func toggleLayout() domain.Layout {
	return domain.EncodeLayout(domain.NewBoolButton("/active", domain.BoolButtonState{
		On:  domain.ButtonState{Value: domain.Fixed("Running"), Color: "green"},
		Off: domain.ButtonState{Value: domain.Fixed("Stopped"), Color: "red"},
	}))
}

func TestBoolButtonFollowsSnapshotThenPatch(t *testing.T) {
	t.Parallel()

	s := NewSession("test", nil)
	resolver := NewViewResolver(nil)
	require.NoError(t, s.Apply(domain.LayoutMessage(toggleLayout())))

	require.NoError(t, s.Apply(domain.SnapshotMessage(domain.MustDocument(map[string]any{"active": false}))))
	views := resolver.ResolveSession(s)
	require.Len(t, views, 1)
	assert.Equal(t, false, views[0].Props["on"])
	assert.Equal(t, "Stopped", views[0].Props["value"])
	assert.Equal(t, "red", views[0].Props["color"])

	require.NoError(t, s.ApplyRaw([]byte(`{"data_patch":[{"op":"replace","path":"/active","value":true}]}`)))
	views = resolver.ResolveSession(s)
	assert.Equal(t, true, views[0].Props["on"])
	assert.Equal(t, "Running", views[0].Props["value"])
	assert.Equal(t, "green", views[0].Props["color"])
	assert.Empty(t, views[0].Issues)
}

func TestViewDegradesUnresolvedFields(t *testing.T) {
	t.Parallel()

	layout := domain.EncodeLayout(
		domain.Text{Value: domain.Some(domain.Pointer[string]("/missing"))},
		domain.Number{Value: domain.Some(domain.Pointer[json.Number]("/name"))},
		domain.NewBoolButton("/name", domain.DefaultBoolButtonState()),
		domain.Heading{Value: domain.Some(domain.Fixed("still here"))},
	)
	doc := domain.MustDocument(map[string]any{"name": "pump"})

	views := NewViewResolver(nil).Resolve(layout, doc)
	require.Len(t, views, 4)
	for _, v := range views[:3] {
		assert.Equal(t, DataUnavailable, v.Props["value"], v.Kind)
		assert.Len(t, v.Issues, 1, v.Kind)
	}
	assert.Equal(t, "still here", views[3].Props["value"])
}

func TestFixedValuesIgnoreDocument(t *testing.T) {
	t.Parallel()

	layout := domain.EncodeLayout(domain.Link{
		Value: domain.Some(domain.Fixed("docs")),
		Href:  domain.Some(domain.Fixed("https://example.org")),
	})
	views := NewViewResolver(nil).Resolve(layout, domain.Document{})
	assert.Equal(t, "docs", views[0].Props["value"])
	assert.Equal(t, "https://example.org", views[0].Props["href"])
	assert.Empty(t, views[0].Issues)
}

func TestTableFromDataResolvesRowsAgainstItems(t *testing.T) {
	t.Parallel()

	layout := domain.EncodeLayout(domain.TableFromData{
		Pointer: "/pumps",
		Header:  []string{"name", "load"},
		RowTemplate: domain.Cells{
			domain.Text{Value: domain.Some(domain.Pointer[string]("/name"))},
			domain.Number{Value: domain.Some(domain.Pointer[json.Number]("/load")), Format: domain.Some(domain.FormatPercentage)},
		},
	})
	doc := domain.MustDocument(map[string]any{"pumps": []any{
		map[string]any{"name": "p1", "load": 0.25},
		map[string]any{"name": "p2"},
	}})

	views := NewViewResolver(nil).Resolve(layout, doc)
	require.Len(t, views[0].Rows, 2)
	assert.Equal(t, "p1", views[0].Rows[0][0].Props["value"])
	assert.Equal(t, "25%", views[0].Rows[0][1].Props["display"])
	assert.Equal(t, DataUnavailable, views[0].Rows[1][1].Props["value"])

	views = NewViewResolver(nil).Resolve(layout, domain.MustDocument(map[string]any{"pumps": "nope"}))
	assert.Equal(t, DataUnavailable, views[0].Props["rows"])
	assert.Len(t, views[0].Issues, 1)
}

func TestDisabledConditions(t *testing.T) {
	t.Parallel()

	locked, err := domain.DisabledWhen("locked")
	require.NoError(t, err)
	open, err := domain.DisabledWhen("open")
	require.NoError(t, err)
	broken, err := domain.DisabledWhen("broken")
	require.NoError(t, err)

	layout := domain.EncodeLayout(
		domain.Button{Disabled: domain.Some(domain.AlwaysDisabled())},
		domain.Button{Disabled: domain.Some(locked)},
		domain.Button{Disabled: domain.Some(open)},
		domain.Button{Disabled: domain.Some(broken)},
		domain.Button{},
	)
	views := NewViewResolver(stubConditions{"locked": true, "open": false}).Resolve(layout, domain.Document{})

	want := []bool{true, true, false, true, false}
	for i, v := range views {
		assert.Equal(t, want[i], v.Props["disabled"], "button %d", i)
	}
	assert.Len(t, views[3].Issues, 1)
}

func TestContainersNestViews(t *testing.T) {
	t.Parallel()

	layout := domain.EncodeLayout(
		domain.Tabs{Tabs: []domain.Tab{
			domain.NewTab("Overview", domain.Grid{Children: domain.Nodes{domain.Text{Value: domain.Some(domain.Fixed("a"))}}}),
		}},
		domain.Table{Header: []string{"k"}, Body: []domain.Nodes{{domain.Text{Value: domain.Some(domain.Fixed("v"))}}}},
	)
	views := NewViewResolver(nil).Resolve(layout, domain.Document{})

	require.Len(t, views[0].Children, 1)
	tab := views[0].Children[0]
	assert.Equal(t, KindTab, tab.Kind)
	assert.Equal(t, "Overview", tab.Props["name"])
	assert.Equal(t, "a", tab.Children[0].Children[0].Props["value"])
	assert.Equal(t, "v", views[1].Rows[0][0].Props["value"])
}
