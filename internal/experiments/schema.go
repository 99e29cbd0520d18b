// Package experiments turns spreadsheet experiment logs into text records
// that can be looked up per question.
package experiments

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema describes how an experiment sheet is laid out.
type Schema struct {
	// Sheet names the worksheet to read; empty selects the first one.
	Sheet string `yaml:"sheet"`
	// HeaderRow is the 1-based row holding column names.
	HeaderRow int `yaml:"header_row"`
	// IDColumns is how many leading columns make up a record identifier.
	IDColumns int `yaml:"id_columns"`
	// MissingMarkers are cell values treated as empty, compared case-insensitively.
	MissingMarkers []string `yaml:"missing_markers"`
}

// DefaultSchema is used when no schema file is configured.
func DefaultSchema() Schema {
	return Schema{
		HeaderRow:      1,
		IDColumns:      3,
		MissingMarkers: []string{"", "nan", "n/a", "na", "-", "none"},
	}
}

// LoadSchema reads a YAML schema. Fields left out keep their defaults.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read experiment schema %s: %w", path, err)
	}

	s := DefaultSchema()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse experiment schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Validate reports the first invalid field.
func (s Schema) Validate() error {
	if s.HeaderRow < 1 {
		return fmt.Errorf("header_row must be at least 1, got %d", s.HeaderRow)
	}
	if s.IDColumns < 1 {
		return fmt.Errorf("id_columns must be at least 1, got %d", s.IDColumns)
	}
	return nil
}

// missing reports whether v counts as an empty cell.
func (s Schema) missing(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	for _, m := range s.MissingMarkers {
		if strings.EqualFold(v, strings.TrimSpace(m)) {
			return true
		}
	}
	return false
}
