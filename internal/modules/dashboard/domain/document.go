package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/gowebpki/jcs"
)

// Document is an immutable JSON tree mirrored between server and client.
// Numbers are kept as json.Number so patches and snapshots round-trip exactly.
// Mutations (Apply) return a new Document and never alter the receiver.
type Document struct {
	root any
}

// NewDocument decodes a JSON value into a document.
func NewDocument(raw []byte) (Document, error) {
	root, err := decodeJSON(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%w: document: %v", ErrMalformedMessage, err)
	}
	return Document{root: root}, nil
}

// DocumentOf converts an arbitrary Go value into a document through its JSON encoding.
func DocumentOf(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}
	return NewDocument(raw)
}

// MustDocument is DocumentOf for literals known to be valid.
func MustDocument(v any) Document {
	doc, err := DocumentOf(v)
	if err != nil {
		panic(err)
	}
	return doc
}

// Root returns the decoded tree. Callers must not mutate it.
func (d Document) Root() any { return d.root }

// Lookup resolves an RFC 6901 path against the document.
func (d Document) Lookup(path string) (any, error) {
	return lookup(d.root, path)
}

// Items resolves path to an array and returns each element as its own document.
// The elements share structure with d and are equally immutable.
func (d Document) Items(path string) ([]Document, error) {
	raw, err := lookup(d.root, path)
	if err != nil {
		return nil, err
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, pointerError(path, ErrPointerType, "expected array, found %s", jsonTypeName(raw))
	}
	items := make([]Document, len(list))
	for i, item := range list {
		items[i] = Document{root: item}
	}
	return items, nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := NewDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Equal reports structural equality.
func (d Document) Equal(other Document) bool {
	return reflect.DeepEqual(d.root, other.root)
}

// Digest returns the hex sha256 of the RFC 8785 canonical encoding.
func (d Document) Digest() (string, error) {
	raw, err := json.Marshal(d.root)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize document: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Apply runs every operation of p against a working copy. If operation k fails the
// returned error is a *PatchApplicationError and the receiver is left as it was.
func (d Document) Apply(p Patch) (Document, error) {
	current, err := json.Marshal(d.root)
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}
	for i := range p {
		next, err := p.applyOne(i, current)
		if err != nil {
			return d, err
		}
		current = next
	}
	return NewDocument(current)
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return root, nil
}
