// Package mapfile reads and writes map documents as standalone JSON files.
package mapfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aiscribe/scribe/internal/graph"
)

// ErrInvalidDocument is returned by Import when the input is not a map
// document.
var ErrInvalidDocument = errors.New("mapfile: invalid document")

// maxImportSize bounds how much of an import source is read.
const maxImportSize = 16 << 20

// Filename returns the suggested export file name for a map exported at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("mindmap-%d.json", t.UnixMilli())
}

// Export encodes doc as indented JSON.
func Export(doc graph.Document) ([]byte, error) {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mapfile: encode: %w", err)
	}
	return data, nil
}

// Import decodes a map document. Unknown fields are ignored; missing node or
// edge arrays become empty. Anything that is not a JSON object, or that
// carries nodes without identifiers, is rejected with ErrInvalidDocument.
func Import(r io.Reader) (graph.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return graph.Document{}, fmt.Errorf("mapfile: read: %w", err)
	}
	if len(data) > maxImportSize {
		return graph.Document{}, fmt.Errorf("%w: larger than %d bytes", ErrInvalidDocument, maxImportSize)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return graph.Document{}, fmt.Errorf("%w: not a JSON object", ErrInvalidDocument)
	}

	var doc graph.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return graph.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for i, n := range doc.Nodes {
		if n.ID == "" {
			return graph.Document{}, fmt.Errorf("%w: node %d has no id", ErrInvalidDocument, i)
		}
	}
	doc.Normalize()
	return doc, nil
}

// WriteFile exports doc into dir under the timestamped name and returns the
// path written.
func WriteFile(dir string, doc graph.Document, now time.Time) (string, error) {
	data, err := Export(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("mapfile: write %q: %w", path, err)
	}
	return path, nil
}

// ReadFile imports the document stored at path.
func ReadFile(path string) (graph.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return graph.Document{}, fmt.Errorf("mapfile: open %q: %w", path, err)
	}
	defer f.Close()
	return Import(f)
}
