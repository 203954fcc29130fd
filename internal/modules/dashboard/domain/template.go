package domain

import (
	"encoding/json"
	"fmt"
)

// ResolveTemplate replaces every embedded Value inside an action template with a
// literal: {"pointer": p} becomes the document value at p and {"fixed": v} becomes v.
// The first unresolvable pointer aborts the whole resolution.
func ResolveTemplate(template json.RawMessage, doc Document) (json.RawMessage, error) {
	if len(template) == 0 {
		return json.RawMessage("null"), nil
	}
	root, err := decodeJSON(template)
	if err != nil {
		return nil, fmt.Errorf("%w: template: %v", ErrMalformedMessage, err)
	}
	resolved, err := resolveTemplateNode(root, doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

// TemplatePointers lists the pointer paths embedded in a template, in document order
// for arrays and unspecified order for object members.
func TemplatePointers(template json.RawMessage) ([]string, error) {
	if len(template) == 0 {
		return nil, nil
	}
	root, err := decodeJSON(template)
	if err != nil {
		return nil, fmt.Errorf("%w: template: %v", ErrMalformedMessage, err)
	}
	var paths []string
	collectPointers(root, &paths)
	return paths, nil
}

func resolveTemplateNode(node any, doc Document) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if path, ok := embeddedPointer(v); ok {
			return doc.Lookup(path)
		}
		if literal, ok := embeddedFixed(v); ok {
			return literal, nil
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			resolved, err := resolveTemplateNode(child, doc)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolved, err := resolveTemplateNode(child, doc)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func collectPointers(node any, paths *[]string) {
	switch v := node.(type) {
	case map[string]any:
		if path, ok := embeddedPointer(v); ok {
			*paths = append(*paths, path)
			return
		}
		if _, ok := embeddedFixed(v); ok {
			return
		}
		for _, child := range v {
			collectPointers(child, paths)
		}
	case []any:
		for _, child := range v {
			collectPointers(child, paths)
		}
	}
}

func embeddedPointer(obj map[string]any) (string, bool) {
	if len(obj) != 1 {
		return "", false
	}
	path, ok := obj["pointer"].(string)
	return path, ok
}

func embeddedFixed(obj map[string]any) (any, bool) {
	if len(obj) != 1 {
		return nil, false
	}
	literal, ok := obj["fixed"]
	return literal, ok
}
