// Package document holds the document type vocabulary shared by ingestion,
// classification and indexing.
package document

import (
	"fmt"
	"strings"
)

// Type is the kind of an ingested document.
type Type string

const (
	TypePaper          Type = "paper"
	TypeSupportingInfo Type = "supporting_info"
	TypeExperiment     Type = "experiment"
	TypeUnknown        Type = "unknown"
)

var tokens = map[Type]string{
	TypePaper:          "PAPER",
	TypeSupportingInfo: "SI",
	TypeExperiment:     "EXP",
	TypeUnknown:        "UNKNOWN",
}

// Token returns the upper-case marker used in managed filenames.
func (t Type) Token() string {
	if tok, ok := tokens[t]; ok {
		return tok
	}
	return tokens[TypeUnknown]
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	_, ok := tokens[t]
	return ok
}

// Parse accepts a type name or a filename token, case-insensitively.
// An empty string parses as TypeUnknown.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeUnknown, nil
	}
	lower := strings.ToLower(s)
	if t := Type(lower); t.Valid() {
		return t, nil
	}
	for t, tok := range tokens {
		if strings.EqualFold(tok, s) {
			return t, nil
		}
	}
	switch lower {
	case "si", "supporting", "supporting information", "supplementary":
		return TypeSupportingInfo, nil
	}
	return TypeUnknown, fmt.Errorf("unknown document type %q", s)
}

// FromToken maps a filename token back to a type; unrecognized tokens are TypeUnknown.
func FromToken(tok string) Type {
	for t, v := range tokens {
		if v == tok {
			return t
		}
	}
	return TypeUnknown
}
