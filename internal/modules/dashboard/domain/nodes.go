package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	uiTag = "ui"
	tdTag = "td"
)

// Nodes is an ordered list of Ui nodes encoded with the "ui" discriminator.
// Decoding skips node kinds this build does not know, so new kinds can be added
// to V0 without breaking older receivers.
type Nodes []Ui

// Cells is an ordered list of Td nodes encoded with the "td" discriminator.
type Cells []Td

func (n Nodes) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(n))
	for i, node := range n {
		raw, err := EncodeUi(node)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

func (n *Nodes) UnmarshalJSON(data []byte) error {
	items, err := rawItems(data)
	if err != nil {
		return err
	}
	var out Nodes
	for i, item := range items {
		node, err := DecodeUi(item)
		var unknown *UnknownNodeKindError
		if errors.As(err, &unknown) {
			continue
		}
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, node)
	}
	*n = out
	return nil
}

func (c Cells) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(c))
	for i, cell := range c {
		raw, err := EncodeTd(cell)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

func (c *Cells) UnmarshalJSON(data []byte) error {
	items, err := rawItems(data)
	if err != nil {
		return err
	}
	var out Cells
	for i, item := range items {
		cell, err := DecodeTd(item)
		var unknown *UnknownNodeKindError
		if errors.As(err, &unknown) {
			continue
		}
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		out = append(out, cell)
	}
	*c = out
	return nil
}

// EncodeUi encodes a node with its "ui" discriminator.
func EncodeUi(node Ui) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrMalformedMessage)
	}
	return marshalTagged(uiTag, node.Kind(), node)
}

// EncodeTd encodes a table cell with its "td" discriminator.
func EncodeTd(cell Td) ([]byte, error) {
	if cell == nil {
		return nil, fmt.Errorf("%w: nil cell", ErrMalformedMessage)
	}
	return marshalTagged(tdTag, cell.Kind(), cell)
}

// DecodeUi decodes a single tagged Ui node.
func DecodeUi(data []byte) (Ui, error) {
	kind, err := readTag(uiTag, data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindHeading:
		return decodeInto[Heading](data)
	case KindText:
		return decodeInto[Text](data)
	case KindLink:
		return decodeInto[Link](data)
	case KindNumber:
		return decodeInto[Number](data)
	case KindButton:
		return decodeInto[Button](data)
	case KindBoolButton:
		return decodeInto[BoolButton](data)
	case KindTabs:
		return decodeInto[Tabs](data)
	case KindGrid:
		return decodeInto[Grid](data)
	case KindDiv:
		return decodeInto[Div](data)
	case KindTable:
		return decodeInto[Table](data)
	case KindTableFromData:
		return decodeInto[TableFromData](data)
	case KindForm:
		return decodeInto[Form](data)
	case KindImage:
		return decodeInto[Image](data)
	default:
		return nil, &UnknownNodeKindError{Tag: uiTag, Kind: string(kind)}
	}
}

// DecodeTd decodes a single tagged table cell. Container kinds are malformed here, so
// list decoding fails on them instead of skipping them as unknown.
func DecodeTd(data []byte) (Td, error) {
	kind, err := readTag(tdTag, data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindHeading:
		return decodeInto[Heading](data)
	case KindText:
		return decodeInto[Text](data)
	case KindLink:
		return decodeInto[Link](data)
	case KindNumber:
		return decodeInto[Number](data)
	case KindButton:
		return decodeInto[Button](data)
	case KindBoolButton:
		return decodeInto[BoolButton](data)
	case KindImage:
		return decodeInto[Image](data)
	case KindTabs, KindGrid, KindDiv, KindTable, KindTableFromData, KindForm:
		return nil, fmt.Errorf("%w: %s is not allowed in a table cell", ErrMalformedMessage, kind)
	default:
		return nil, &UnknownNodeKindError{Tag: tdTag, Kind: string(kind)}
	}
}

func decodeInto[T any](data []byte) (T, error) {
	var node T
	if err := json.Unmarshal(data, &node); err != nil {
		return node, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return node, nil
}

func readTag(tag string, data []byte) (NodeKind, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("%w: node: %v", ErrMalformedMessage, err)
	}
	rawKind, ok := fields[tag]
	if !ok {
		return "", fmt.Errorf("%w: node without %q discriminator", ErrMalformedMessage, tag)
	}
	var kind string
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return "", fmt.Errorf("%w: %q discriminator: %v", ErrMalformedMessage, tag, err)
	}
	return NodeKind(kind), nil
}

func marshalTagged(tag string, kind NodeKind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	header, err := json.Marshal(map[string]NodeKind{tag: kind})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(body, []byte("{}")) {
		return header, nil
	}
	// header is {"tag":"kind"}; splice the remaining fields of body after it.
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header[:len(header)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func rawItems(data []byte) ([]json.RawMessage, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: node list: %v", ErrMalformedMessage, err)
	}
	return items, nil
}
