package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

const fieldTag = "kind"

// InputField is the closed union of form inputs, tagged by "kind".
type InputField interface {
	FieldKind() string
	// FieldName is the key under which the submitted value is merged into the template.
	FieldName() string
	isInputField()
}

type TextInputField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type CheckBoxInputField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type SelectInputField struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	Options []SelectOption `json:"options"`
}

type SelectOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

func NewSelectField(name, label string, options ...SelectOption) SelectInputField {
	return SelectInputField{Name: name, Label: label, Options: options}
}

func (TextInputField) FieldKind() string     { return "text" }
func (CheckBoxInputField) FieldKind() string { return "check_box" }
func (SelectInputField) FieldKind() string   { return "select" }

func (f TextInputField) FieldName() string     { return f.Name }
func (f CheckBoxInputField) FieldName() string { return f.Name }
func (f SelectInputField) FieldName() string   { return f.Name }

func (TextInputField) isInputField()     {}
func (CheckBoxInputField) isInputField() {}
func (SelectInputField) isInputField()   {}

// InputFields is an ordered list of tagged input fields. Unlike Nodes, unknown
// kinds are an error: a form that silently drops inputs would submit wrong payloads.
type InputFields []InputField

func (f InputFields) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(f))
	for i, field := range f {
		if field == nil {
			return nil, fmt.Errorf("field %d: %w: nil field", i, ErrMalformedMessage)
		}
		raw, err := marshalTagged(fieldTag, NodeKind(field.FieldKind()), field)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

func (f *InputFields) UnmarshalJSON(data []byte) error {
	items, err := rawItems(data)
	if err != nil {
		return err
	}
	var out InputFields
	for i, item := range items {
		field, err := DecodeInputField(item)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		out = append(out, field)
	}
	*f = out
	return nil
}

// DecodeInputField decodes one tagged input field.
func DecodeInputField(data []byte) (InputField, error) {
	kind, err := readTag(fieldTag, data)
	if err != nil {
		return nil, err
	}
	var field InputField
	switch kind {
	case "text":
		field, err = decodeInto[TextInputField](data)
	case "check_box":
		field, err = decodeInto[CheckBoxInputField](data)
	case "select":
		field, err = decodeInto[SelectInputField](data)
	default:
		return nil, &UnknownNodeKindError{Tag: fieldTag, Kind: string(kind)}
	}
	if err != nil {
		return nil, err
	}
	if field.FieldName() == "" {
		return nil, fmt.Errorf("%w: %s field without name", ErrMalformedMessage, kind)
	}
	return field, nil
}

var errNotObject = errors.New("template is not a JSON object")

// MergeFormValues copies submitted values into the form's template object, keyed by
// each field's name. Fields without a submitted value are left out; a submitted value
// replaces a template key of the same name.
func MergeFormValues(form Form, values map[string]any) (json.RawMessage, error) {
	template := json.RawMessage("{}")
	if form.OnSubmit != nil && len(form.OnSubmit.Template) > 0 {
		template = form.OnSubmit.Template
	}
	root, err := decodeJSON(template)
	if err != nil {
		return nil, fmt.Errorf("%w: template: %v", ErrMalformedMessage, err)
	}
	if root == nil && len(form.Fields) > 0 {
		root = map[string]any{}
	}
	payload, ok := root.(map[string]any)
	if !ok {
		if len(form.Fields) == 0 {
			return template, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, errNotObject)
	}
	for _, field := range form.Fields {
		value, ok := values[field.FieldName()]
		if !ok {
			continue
		}
		payload[field.FieldName()] = value
	}
	return json.Marshal(payload)
}
