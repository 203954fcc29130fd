package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Patch operation names (RFC 6902).
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// PatchOperation is one RFC 6902 step. Value is kept raw so numbers survive untouched.
type PatchOperation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Patch is an ordered list of operations applied atomically.
type Patch []PatchOperation

// DecodePatch parses and validates an RFC 6902 document.
func DecodePatch(raw []byte) (Patch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of operations", ErrInvalidPatch)
	}
	var ops []PatchOperation
	if err := json.Unmarshal(trimmed, &ops); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	p := Patch(ops)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Op builds a PatchOperation, encoding value when the operation carries one.
func Op(op, path string, value any) (PatchOperation, error) {
	operation := PatchOperation{Op: op, Path: path}
	switch op {
	case OpAdd, OpReplace, OpTest:
		raw, err := json.Marshal(value)
		if err != nil {
			return PatchOperation{}, fmt.Errorf("encode %s value: %w", op, err)
		}
		operation.Value = raw
	}
	return operation, operation.validate()
}

// MoveOp and CopyOp build the two operations that read from another location.
func MoveOp(from, path string) PatchOperation {
	return PatchOperation{Op: OpMove, From: from, Path: path}
}

func CopyOp(from, path string) PatchOperation {
	return PatchOperation{Op: OpCopy, From: from, Path: path}
}

// NewPatch validates and assembles operations.
func NewPatch(ops ...PatchOperation) (Patch, error) {
	p := Patch(append([]PatchOperation(nil), ops...))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustPatch is NewPatch for operations known to be valid.
func MustPatch(ops ...PatchOperation) Patch {
	p, err := NewPatch(ops...)
	if err != nil {
		panic(err)
	}
	return p
}

// Concat returns p followed by other.
func (p Patch) Concat(other Patch) Patch {
	out := make(Patch, 0, len(p)+len(other))
	out = append(out, p...)
	return append(out, other...)
}

// Validate checks every operation's shape without touching any document.
func (p Patch) Validate() error {
	for i, op := range p {
		if err := op.validate(); err != nil {
			return fmt.Errorf("operation %d: %w", i+1, err)
		}
	}
	return nil
}

func (op PatchOperation) validate() error {
	switch op.Op {
	case OpAdd, OpReplace, OpTest:
		if len(op.Value) == 0 {
			return fmt.Errorf("%w: %s requires a value", ErrInvalidPatch, op.Op)
		}
	case OpMove, OpCopy:
		if _, err := ParsePointer(op.From); err != nil {
			return fmt.Errorf("%w: from: %v", ErrInvalidPatch, err)
		}
	case OpRemove:
	default:
		return fmt.Errorf("%w: unsupported op %q", ErrInvalidPatch, op.Op)
	}
	if _, err := ParsePointer(op.Path); err != nil {
		return fmt.Errorf("%w: path: %v", ErrInvalidPatch, err)
	}
	return nil
}

// applyOptions holds json-patch to RFC 6901 array indices; "-1" is not a position.
var applyOptions = func() *jsonpatch.ApplyOptions {
	opts := jsonpatch.NewApplyOptions()
	opts.SupportNegativeIndices = false
	return opts
}()

func (p Patch) applyOne(i int, doc []byte) ([]byte, error) {
	op := p[i]
	fail := func(err error) ([]byte, error) {
		return nil, &PatchApplicationError{Index: i + 1, Op: op.Op, Path: op.Path, Err: err}
	}
	if op.Op == OpTest {
		if err := testValue(doc, op); err != nil {
			return fail(err)
		}
		return doc, nil
	}
	raw, err := json.Marshal([]PatchOperation{op})
	if err != nil {
		return fail(err)
	}
	step, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return fail(err)
	}
	out, err := step.ApplyWithOptions(doc, applyOptions)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

// testValue runs a test operation. Numbers compare by value, so 1 and 1.0 match.
func testValue(doc []byte, op PatchOperation) error {
	root, err := decodeJSON(doc)
	if err != nil {
		return err
	}
	actual, err := lookup(root, op.Path)
	if err != nil {
		return err
	}
	want, err := decodeJSON(op.Value)
	if err != nil {
		return fmt.Errorf("test value: %w", err)
	}
	if !jsonEqual(actual, want) {
		return fmt.Errorf("test failed: value at %q differs", op.Path)
	}
	return nil
}

func jsonEqual(a, b any) bool {
	switch av := a.(type) {
	case json.Number:
		bv, ok := b.(json.Number)
		if !ok {
			return false
		}
		x, okx := new(big.Float).SetPrec(512).SetString(string(av))
		y, oky := new(big.Float).SetPrec(512).SetString(string(bv))
		if !okx || !oky {
			return av == bv
		}
		return x.Cmp(y) == 0
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !jsonEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !jsonEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
