package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tickagent/internal/logger"
)

const listIndent = "  "

// JSONList is a file holding one JSON array, always rewritten whole.
type JSONList[T any] struct {
	path string
}

func NewJSONList[T any](path string) *JSONList[T] {
	return &JSONList[T]{path: path}
}

// Read returns the stored sequence. A missing, unreadable or non-array file
// reads as empty; elements that do not decode as T are skipped.
func (l *JSONList[T]) Read() []T {
	raw := l.readRaw()
	out := make([]T, 0, len(raw))
	for i, elem := range raw {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			logger.Warnf("store: %s element %d skipped: %v", l.path, i, err)
			continue
		}
		out = append(out, item)
	}
	return out
}

// readRaw returns the array elements exactly as stored.
func (l *JSONList[T]) readRaw() []json.RawMessage {
	b, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("store: read %s failed: %v", l.path, err)
		}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		logger.Warnf("store: %s is not a JSON list, treating as empty: %v", l.path, err)
		return nil
	}
	return raw
}

// Write replaces the whole document with items.
func (l *JSONList[T]) Write(items []T) error {
	elems := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := marshalElement(item)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", l.path, err)
		}
		elems = append(elems, b)
	}
	return l.writeFile(encodeList(elems))
}

// Append adds item after the stored elements. Existing elements are copied
// through untouched, whether or not they decode as T.
func (l *JSONList[T]) Append(item T) error {
	b, err := marshalElement(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", l.path, err)
	}
	elems := append(l.readRaw(), b)
	return l.writeFile(encodeList(elems))
}

func marshalElement(v any) (json.RawMessage, error) {
	return json.MarshalIndent(v, listIndent, listIndent)
}

// encodeList lays elements out the way json.MarshalIndent does for a
// top-level array, without re-encoding them.
func encodeList(elems []json.RawMessage) []byte {
	if len(elems) == 0 {
		return []byte("[]")
	}
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, e := range elems {
		buf.WriteString(listIndent)
		buf.Write(e)
		if i < len(elems)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// writeFile replaces the file through a temp file in the same directory, so
// readers see either the old document or the new one.
func (l *JSONList[T]) writeFile(b []byte) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", l.path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", l.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace %s: %w", l.path, err)
	}
	return nil
}
