package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RxKind names the server→client message variants.
type RxKind string

const (
	RxLayout       RxKind = "layout"
	RxDataSnapshot RxKind = "data_snapshot"
	RxDataPatch    RxKind = "data_patch"
)

// DashboardRx is one server→client frame: a layout, a full snapshot or a patch.
type DashboardRx struct {
	Kind     RxKind
	Layout   Layout
	Snapshot Document
	Patch    Patch
}

func LayoutMessage(l Layout) DashboardRx { return DashboardRx{Kind: RxLayout, Layout: l} }

func SnapshotMessage(doc Document) DashboardRx {
	return DashboardRx{Kind: RxDataSnapshot, Snapshot: doc}
}

func PatchMessage(p Patch) DashboardRx { return DashboardRx{Kind: RxDataPatch, Patch: p} }

func (m DashboardRx) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case RxLayout:
		return json.Marshal(map[string]Layout{string(RxLayout): m.Layout})
	case RxDataSnapshot:
		return json.Marshal(map[string]Document{string(RxDataSnapshot): m.Snapshot})
	case RxDataPatch:
		p := m.Patch
		if p == nil {
			p = Patch{}
		}
		return json.Marshal(map[string]Patch{string(RxDataPatch): p})
	default:
		return nil, fmt.Errorf("%w: unknown rx kind %q", ErrMalformedMessage, m.Kind)
	}
}

func (m *DashboardRx) UnmarshalJSON(data []byte) error {
	msg, err := DecodeRx(data)
	if err != nil {
		return err
	}
	*m = msg
	return nil
}

// DecodeRx parses a server→client frame. A layout with an unknown version yields
// *UnknownLayoutVersionError; anything structurally wrong wraps ErrMalformedMessage.
func DecodeRx(data []byte) (DashboardRx, error) {
	body, kind, err := singleKey(data)
	if err != nil {
		return DashboardRx{}, err
	}
	switch RxKind(kind) {
	case RxLayout:
		layout, err := DecodeLayout(body)
		if err != nil {
			return DashboardRx{}, err
		}
		return LayoutMessage(layout), nil
	case RxDataSnapshot:
		doc, err := NewDocument(body)
		if err != nil {
			return DashboardRx{}, err
		}
		return SnapshotMessage(doc), nil
	case RxDataPatch:
		p, err := DecodePatch(body)
		if err != nil {
			return DashboardRx{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return PatchMessage(p), nil
	default:
		return DashboardRx{}, fmt.Errorf("%w: unknown rx variant %q", ErrMalformedMessage, kind)
	}
}

// DashboardTx is the client→server frame. Its only variant is Msg.
type DashboardTx struct {
	Template json.RawMessage
}

// NewMsg encodes template (which may embed Value pointers) into a Msg.
func NewMsg(template any) (DashboardTx, error) {
	raw, err := json.Marshal(template)
	if err != nil {
		return DashboardTx{}, fmt.Errorf("encode template: %w", err)
	}
	return DashboardTx{Template: raw}, nil
}

// MustMsg is NewMsg for templates known to encode.
func MustMsg(template any) DashboardTx {
	tx, err := NewMsg(template)
	if err != nil {
		panic(err)
	}
	return tx
}

type msgBody struct {
	Template json.RawMessage `json:"template"`
}

func (t DashboardTx) MarshalJSON() ([]byte, error) {
	template := t.Template
	if len(template) == 0 {
		template = json.RawMessage("null")
	}
	return json.Marshal(map[string]msgBody{"msg": {Template: template}})
}

func (t *DashboardTx) UnmarshalJSON(data []byte) error {
	tx, err := DecodeTx(data)
	if err != nil {
		return err
	}
	*t = tx
	return nil
}

// DecodeTx parses a client→server frame.
func DecodeTx(data []byte) (DashboardTx, error) {
	body, kind, err := singleKey(data)
	if err != nil {
		return DashboardTx{}, err
	}
	if kind != "msg" {
		return DashboardTx{}, fmt.Errorf("%w: unknown tx variant %q", ErrMalformedMessage, kind)
	}
	var msg msgBody
	if err := json.Unmarshal(body, &msg); err != nil {
		return DashboardTx{}, fmt.Errorf("%w: msg: %v", ErrMalformedMessage, err)
	}
	if len(msg.Template) == 0 {
		return DashboardTx{}, fmt.Errorf("%w: msg without template", ErrMalformedMessage)
	}
	return DashboardTx{Template: msg.Template}, nil
}

// IsTx reports whether a raw inbound frame is shaped like a DashboardTx.
func IsTx(data []byte) bool {
	_, kind, err := singleKey(data)
	return err == nil && kind == "msg"
}

func singleKey(data []byte) (json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, "", fmt.Errorf("%w: expected a JSON object", ErrMalformedMessage)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(raw) != 1 {
		return nil, "", fmt.Errorf("%w: expected exactly one variant key, got %d", ErrMalformedMessage, len(raw))
	}
	for key, body := range raw {
		return body, key, nil
	}
	return nil, "", ErrMalformedMessage
}
