package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Index holds the local card name index. Lookups are case-insensitive; the
// index is immutable after load so concurrent reads need no locking.
type Index struct {
	byName map[string]Metadata
	names  []string
}

// LoadIndex reads a JSON array of card records from path. A missing file
// yields an empty index rather than an error so the sorter can run on remote
// lookups alone.
func LoadIndex(path string) (*Index, error) {
	idx := &Index{byName: make(map[string]Metadata)}
	if strings.TrimSpace(path) == "" {
		return idx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("read card index: %w", err)
	}
	if len(data) == 0 {
		return idx, nil
	}

	var records []Metadata
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse card index: %w", err)
	}

	return NewIndex(records), nil
}

// NewIndex builds an index from card records. Records with empty names are
// skipped; later duplicates win.
func NewIndex(records []Metadata) *Index {
	idx := &Index{byName: make(map[string]Metadata, len(records))}
	for _, record := range records {
		key := strings.ToLower(strings.TrimSpace(record.Name))
		if key == "" {
			continue
		}
		if _, exists := idx.byName[key]; !exists {
			idx.names = append(idx.names, record.Name)
		}
		idx.byName[key] = record
	}
	return idx
}

// Lookup returns the metadata for a name, matched case-insensitively.
func (i *Index) Lookup(name string) (Metadata, bool) {
	meta, ok := i.byName[strings.ToLower(strings.TrimSpace(name))]
	return meta, ok
}

// Names returns the canonical card names in the index, in load order.
func (i *Index) Names() []string {
	return i.names
}

// Len returns the number of distinct names in the index.
func (i *Index) Len() int {
	return len(i.byName)
}
