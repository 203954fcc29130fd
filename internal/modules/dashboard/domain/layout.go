package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LayoutVersion is the envelope tag. The tag alone decides how the payload is read.
type LayoutVersion string

const LayoutV0 LayoutVersion = "v0"

// Layout is the versioned envelope around the node tree.
type Layout struct {
	Version LayoutVersion
	Nodes   Nodes
}

// EncodeLayout wraps nodes in the current envelope version.
func EncodeLayout(nodes ...Ui) Layout {
	return Layout{Version: LayoutV0, Nodes: nodes}
}

type layoutEnvelope struct {
	Version LayoutVersion   `json:"version"`
	Layout  json.RawMessage `json:"layout"`
}

func (l Layout) MarshalJSON() ([]byte, error) {
	if l.Version != LayoutV0 {
		return nil, &UnknownLayoutVersionError{Version: string(l.Version)}
	}
	nodes := l.Nodes
	if nodes == nil {
		nodes = Nodes{}
	}
	body, err := json.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	return json.Marshal(layoutEnvelope{Version: l.Version, Layout: body})
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeLayout(data)
	if err != nil {
		return err
	}
	*l = decoded
	return nil
}

// DecodeLayout reads an envelope, failing closed on versions it does not know.
func DecodeLayout(data []byte) (Layout, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Layout{}, fmt.Errorf("%w: layout envelope: %v", ErrMalformedMessage, err)
	}
	rawVersion, ok := fields["version"]
	if !ok {
		return Layout{}, fmt.Errorf("%w: layout envelope without version", ErrMalformedMessage)
	}
	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return Layout{}, fmt.Errorf("%w: layout version: %v", ErrMalformedMessage, err)
	}
	switch LayoutVersion(version) {
	case LayoutV0:
		body, ok := fields["layout"]
		if !ok {
			return Layout{}, fmt.Errorf("%w: v0 layout without payload", ErrMalformedMessage)
		}
		var nodes Nodes
		if err := json.Unmarshal(body, &nodes); err != nil {
			return Layout{}, fmt.Errorf("%w: v0 layout: %v", ErrMalformedMessage, err)
		}
		return Layout{Version: LayoutV0, Nodes: nodes}, nil
	default:
		return Layout{}, &UnknownLayoutVersionError{Version: version}
	}
}

// Validate checks the identifying fields each node needs to be meaningful and that
// every pointer in the tree is well-formed.
func (l Layout) Validate() error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if l.Version != LayoutV0 {
		report("unsupported version %q", l.Version)
	}
	_ = Walk(l.Nodes, func(path string, node Node) error {
		for _, p := range ValuePaths(node) {
			if _, err := ParsePointer(p); err != nil {
				report("%s: %v", path, err)
			}
		}
		switch n := node.(type) {
		case BoolButton:
			if n.Pointer == "" {
				report("%s: bool_button requires a pointer", path)
			}
			if n.Disabled != nil {
				checkDisabled(path, *n.Disabled, report)
			}
		case Button:
			if n.Disabled != nil {
				checkDisabled(path, *n.Disabled, report)
			}
		case TableFromData:
			if n.Pointer == "" {
				report("%s: table_from_data requires a pointer", path)
			}
		case Tabs:
			for i, tab := range n.Tabs {
				if strings.TrimSpace(tab.Name) == "" {
					report("%s/tabs/%d: tab requires a name", path, i)
				}
			}
		case Form:
			seen := make(map[string]struct{}, len(n.Fields))
			for i, field := range n.Fields {
				if _, dup := seen[field.FieldName()]; dup {
					report("%s/fields/%d: duplicate field name %q", path, i, field.FieldName())
				}
				seen[field.FieldName()] = struct{}{}
			}
		}
		return nil
	})
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkDisabled(path string, d Disabled, report func(string, ...any)) {
	if expr, ok := d.Condition(); ok && strings.TrimSpace(expr) == "" {
		report("%s: disabled condition is empty", path)
	}
}

// ValuePaths lists the pointer paths of a node's own fields, excluding children.
// BoolButton and TableFromData pointers are included.
func ValuePaths(node Node) []string {
	var paths []string
	addString := func(v *Value[string]) {
		if v != nil && v.IsPointer() {
			paths = append(paths, v.Path())
		}
	}
	switch n := node.(type) {
	case Heading:
		addString(n.Value)
	case Text:
		addString(n.Value)
	case Link:
		addString(n.Value)
		addString(n.Href)
	case Image:
		addString(n.Src)
	case Number:
		if n.Value != nil && n.Value.IsPointer() {
			paths = append(paths, n.Value.Path())
		}
	case Button:
		addString(n.Value)
	case BoolButton:
		paths = append(paths, n.Pointer)
		if n.State != nil {
			addString(&n.State.On.Value)
			addString(&n.State.Off.Value)
		}
	case TableFromData:
		paths = append(paths, n.Pointer)
	case Tabs, Grid, Div, Table, Form:
	}
	return paths
}

// Walk visits every node depth-first, children after their parent. path is a
// JSON-pointer-like location of the node inside the layout ("/0/children/1").
// Table-from-data row templates are visited as Td cells.
func Walk(nodes Nodes, fn func(path string, node Node) error) error {
	return walkNodes("", nodes, fn)
}

func walkNodes(prefix string, nodes Nodes, fn func(string, Node) error) error {
	for i, node := range nodes {
		if err := walkNode(fmt.Sprintf("%s/%d", prefix, i), node, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkNode(path string, node Ui, fn func(string, Node) error) error {
	if err := fn(path, node); err != nil {
		return err
	}
	switch n := node.(type) {
	case Tabs:
		for i, tab := range n.Tabs {
			if err := walkNodes(fmt.Sprintf("%s/tabs/%d/contents", path, i), tab.Contents, fn); err != nil {
				return err
			}
		}
	case Grid:
		return walkNodes(path+"/children", n.Children, fn)
	case Div:
		return walkNodes(path+"/children", n.Children, fn)
	case Table:
		for r, row := range n.Body {
			if err := walkNodes(fmt.Sprintf("%s/body/%d", path, r), row, fn); err != nil {
				return err
			}
		}
	case TableFromData:
		for i, cell := range n.RowTemplate {
			if err := fn(fmt.Sprintf("%s/row_template/%d", path, i), cell); err != nil {
				return err
			}
		}
	case Heading, Text, Link, Number, Button, BoolButton, Form, Image:
	}
	return nil
}
