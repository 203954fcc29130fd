package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// DataUnavailable is shown in place of any field whose pointer did not resolve.
const DataUnavailable = "data unavailable"

// KindTab labels the per-tab views nested under a tabs view.
const KindTab domain.NodeKind = "tab"

// View is a node with every Value replaced by a literal, ready for a renderer.
type View struct {
	Kind     domain.NodeKind `json:"kind"`
	Props    map[string]any  `json:"props,omitempty"`
	Children []View          `json:"children,omitempty"`
	Rows     [][]View        `json:"rows,omitempty"`
	Issues   []string        `json:"issues,omitempty"`
}

// ViewResolver turns a layout plus document into views. Failed lookups degrade the
// affected field only; resolution never aborts.
type ViewResolver struct {
	conditions port.ConditionEvaluator
}

// NewViewResolver builds a resolver. With a nil evaluator every conditional Disabled
// is treated as disabled.
func NewViewResolver(conditions port.ConditionEvaluator) *ViewResolver {
	return &ViewResolver{conditions: conditions}
}

func (r *ViewResolver) Resolve(layout domain.Layout, doc domain.Document) []View {
	return r.nodes(layout.Nodes, doc)
}

// ResolveSession resolves the session's current layout against its current document.
func (r *ViewResolver) ResolveSession(s *Session) []View {
	layout, ok := s.Layout()
	if !ok {
		return nil
	}
	doc, _ := s.Document()
	return r.Resolve(layout, doc)
}

func (r *ViewResolver) nodes(nodes domain.Nodes, doc domain.Document) []View {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]View, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, r.node(n, doc))
	}
	return out
}

func (r *ViewResolver) cells(cells domain.Cells, doc domain.Document) []View {
	out := make([]View, 0, len(cells))
	for _, c := range cells {
		out = append(out, r.node(c, doc))
	}
	return out
}

func (r *ViewResolver) node(node domain.Node, doc domain.Document) View {
	v := View{Kind: node.Kind(), Props: map[string]any{}}
	switch n := node.(type) {
	case domain.Heading:
		v.str("value", n.Value, doc)
		if n.Format != nil {
			v.Props["format"] = string(*n.Format)
		}
	case domain.Text:
		v.str("value", n.Value, doc)
		v.inline(n.Style)
	case domain.Link:
		v.str("value", n.Value, doc)
		v.str("href", n.Href, doc)
		if n.Style != nil {
			v.Props["style"] = string(*n.Style)
		}
	case domain.Image:
		v.str("src", n.Src, doc)
	case domain.Number:
		v.number(n, doc)
		v.inline(n.Style)
	case domain.Button:
		v.str("value", n.Value, doc)
		if n.Style != nil {
			v.Props["style"] = string(*n.Style)
		}
		v.Props["disabled"] = r.disabled(&v, n.Disabled, doc)
		v.Props["action"] = n.OnClick != nil
	case domain.BoolButton:
		r.boolButton(&v, n, doc)
	case domain.Tabs:
		for _, tab := range n.Tabs {
			v.Children = append(v.Children, View{
				Kind:     KindTab,
				Props:    map[string]any{"name": tab.Name},
				Children: r.nodes(tab.Contents, doc),
			})
		}
		optionalInt(v.Props, "max_height", n.MaxHeight)
	case domain.Grid:
		optionalInt(v.Props, "max_height", n.MaxHeight)
		optionalInt(v.Props, "min_cell_width", n.MinCellWidth)
		optionalInt(v.Props, "gap", n.Gap)
		v.Children = r.nodes(n.Children, doc)
	case domain.Div:
		optionalInt(v.Props, "max_height", n.MaxHeight)
		v.Children = r.nodes(n.Children, doc)
	case domain.Table:
		if len(n.Header) > 0 {
			v.Props["header"] = n.Header
		}
		for _, row := range n.Body {
			v.Rows = append(v.Rows, r.nodes(row, doc))
		}
	case domain.TableFromData:
		if len(n.Header) > 0 {
			v.Props["header"] = n.Header
		}
		items, err := doc.Items(n.Pointer)
		if err != nil {
			v.issue(err)
			v.Props["rows"] = DataUnavailable
			break
		}
		for _, item := range items {
			v.Rows = append(v.Rows, r.cells(n.RowTemplate, item))
		}
	case domain.Form:
		fields := make([]map[string]any, 0, len(n.Fields))
		for _, f := range n.Fields {
			field := map[string]any{"kind": f.FieldKind(), "name": f.FieldName()}
			switch ff := f.(type) {
			case domain.TextInputField:
				field["label"] = ff.Label
			case domain.CheckBoxInputField:
				field["label"] = ff.Label
			case domain.SelectInputField:
				field["label"] = ff.Label
				field["options"] = ff.Options
			}
			fields = append(fields, field)
		}
		v.Props["fields"] = fields
		v.Props["action"] = n.OnSubmit != nil
	}
	if len(v.Props) == 0 {
		v.Props = nil
	}
	return v
}

func (r *ViewResolver) boolButton(v *View, n domain.BoolButton, doc domain.Document) {
	state := domain.DefaultBoolButtonState()
	if n.State != nil {
		state = *n.State
	}
	on, err := domain.ResolveBool(domain.Pointer[bool](n.Pointer), doc)
	if err != nil {
		v.issue(err)
		v.Props["value"] = DataUnavailable
		v.Props["disabled"] = true
		return
	}
	selected := state.Off
	if on {
		selected = state.On
	}
	v.Props["on"] = on
	v.Props["color"] = selected.Color
	value := selected.Value
	v.str("value", &value, doc)
	v.Props["disabled"] = r.disabled(v, n.Disabled, doc)
	v.Props["action"] = n.OnClick != nil
}

func (r *ViewResolver) disabled(v *View, d *domain.Disabled, doc domain.Document) bool {
	if d == nil {
		return false
	}
	expr, conditional := d.Condition()
	if !conditional {
		return true
	}
	if r.conditions == nil {
		v.Issues = append(v.Issues, fmt.Sprintf("no evaluator for condition %q", expr))
		return true
	}
	disabled, err := r.conditions.Evaluate(expr, doc)
	if err != nil {
		slog.Debug("view condition failed", slog.String("condition", expr), slog.Any("error", err))
		v.issue(err)
		return true
	}
	return disabled
}

func (v *View) str(key string, value *domain.Value[string], doc domain.Document) {
	if value == nil {
		return
	}
	s, err := domain.ResolveString(*value, doc)
	if err != nil {
		v.issue(err)
		v.Props[key] = DataUnavailable
		return
	}
	v.Props[key] = s
}

func (v *View) number(n domain.Number, doc domain.Document) {
	if n.Format != nil {
		v.Props["format"] = string(*n.Format)
	}
	if n.Value == nil {
		return
	}
	num, err := domain.ResolveNumber(*n.Value, doc)
	if err != nil {
		v.issue(err)
		v.Props["value"] = DataUnavailable
		return
	}
	v.Props["value"] = num
	v.Props["display"] = formatNumber(num, n.Format)
}

func (v *View) inline(style *domain.InlineStyle) {
	s := domain.Unstyled
	if style != nil {
		s = *style
	}
	v.Props["style"] = string(s)
	v.Props["tag"] = s.Tag()
}

func (v *View) issue(err error) {
	v.Issues = append(v.Issues, err.Error())
}

func optionalInt(props map[string]any, key string, value *int) {
	if value != nil {
		props[key] = *value
	}
}

// formatNumber renders a percentage as value*100 with a % suffix; everything else
// keeps the document's own digits.
func formatNumber(n json.Number, format *domain.NumberFormat) string {
	if format == nil || *format != domain.FormatPercentage {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(math.Round(f*1e8)/1e6, 'f', -1, 64) + "%"
}
