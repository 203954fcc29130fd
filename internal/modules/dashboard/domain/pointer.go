package domain

import (
	"encoding/json"
	"strconv"

	"github.com/go-openapi/jsonpointer"
)

// ParsePointer splits an RFC 6901 path into its unescaped reference tokens.
// The empty path selects the whole document.
func ParsePointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return nil, pointerError(path, ErrPointerSyntax, "%v", err)
	}
	for i := 0; i < len(path); i++ {
		if path[i] != '~' {
			continue
		}
		if i+1 >= len(path) || (path[i+1] != '0' && path[i+1] != '1') {
			return nil, pointerError(path, ErrPointerSyntax, "invalid escape at offset %d", i)
		}
	}
	return ptr.DecodedTokens(), nil
}

// lookup walks a decoded JSON tree (map[string]any / []any / scalars).
func lookup(root any, path string) (any, error) {
	tokens, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	node := root
	for i, token := range tokens {
		switch current := node.(type) {
		case map[string]any:
			next, ok := current[token]
			if !ok {
				return nil, pointerError(path, ErrPointerNotFound, "object has no key %q", token)
			}
			node = next
		case []any:
			idx, ok := arrayIndex(token)
			if !ok {
				return nil, pointerError(path, ErrPointerNotFound, "invalid array index %q", token)
			}
			if idx >= len(current) {
				return nil, pointerError(path, ErrPointerNotFound, "index %d out of range (len %d)", idx, len(current))
			}
			node = current[idx]
		default:
			return nil, pointerError(path, ErrPointerNotFound, "token %d (%q) indexes into a scalar", i+1, token)
		}
	}
	return node, nil
}

// arrayIndex accepts canonical non-negative decimals only; "-" never resolves on reads.
func arrayIndex(token string) (int, bool) {
	if token == "" || (len(token) > 1 && token[0] == '0') {
		return 0, false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func coerceString(path string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", pointerError(path, ErrPointerType, "expected string, found %s", jsonTypeName(v))
	}
	return s, nil
}

func coerceNumber(path string, v any) (json.Number, error) {
	switch n := v.(type) {
	case json.Number:
		return n, nil
	case float64:
		return json.Number(strconv.FormatFloat(n, 'g', -1, 64)), nil
	case int:
		return json.Number(strconv.Itoa(n)), nil
	case int64:
		return json.Number(strconv.FormatInt(n, 10)), nil
	default:
		return "", pointerError(path, ErrPointerType, "expected number, found %s", jsonTypeName(v))
	}
}

func coerceBool(path string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, pointerError(path, ErrPointerType, "expected boolean, found %s", jsonTypeName(v))
	}
	return b, nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
