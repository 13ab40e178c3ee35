// Package records reads item sequences from files.
//
// A file is either a plain text file with one item per line, or a JSON or YAML document whose
// top level is a sequence. Items of JSON and YAML documents are identified by a key field, if
// one is given.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrNotSequence   = errors.New("document is not a sequence")
)

// Record is a single item. Two records are the same item if their keys are equal, and they are
// equal if their values are equal.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (r Record) String() string {
	if r.Key == r.Value {
		return r.Value
	}
	return r.Key + ": " + r.Value
}

// Identity returns the key of r.
func Identity(r Record) string { return r.Key }

// Equal reports whether a and b have the same value.
func Equal(a, b Record) bool { return a.Value == b.Value }

// Format returns the format used for path if none is given explicitly.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return "lines"
}

// Load reads the records in the file at path. An empty format is derived from the file
// extension. key names the identity field of JSON and YAML items.
func Load(path, format, key string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	if format == "" {
		format = Format(path)
	}
	recs, err := Parse(data, format, key)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return recs, nil
}

// Parse parses records in the given format.
func Parse(data []byte, format, key string) ([]Record, error) {
	switch format {
	case "lines":
		return parseLines(data), nil
	case "json":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return fromDocument(doc, key)
	case "yaml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return fromDocument(doc, key)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

func parseLines(data []byte) []Record {
	if len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	var ret []Record
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		ret = append(ret, Record{Key: line, Value: line})
	}
	return ret
}

func fromDocument(doc any, key string) ([]Record, error) {
	if doc == nil {
		return nil, nil
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, ErrNotSequence
	}

	ret := make([]Record, 0, len(items))
	for i, item := range items {
		value, err := canonical(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		r := Record{Key: value, Value: value}
		if obj, ok := item.(map[string]any); ok && key != "" {
			if k, ok := obj[key]; ok && k != nil {
				if r.Key, err = stringify(k); err != nil {
					return nil, fmt.Errorf("key of item %d: %w", i, err)
				}
			}
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func stringify(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return canonical(v)
}

// canonical encodes v as JSON. Object keys are sorted, so equal values have equal encodings.
func canonical(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding item: %w", err)
	}
	return string(b), nil
}
