// Package schema parses the CSV sidecar metadata into an ordered sequence
// of (name, kind) pairs. Order is significant: the i-th CSV field maps to
// the i-th schema entry.
package schema

import (
	"fmt"
	"strings"
)

// Kind is a closed enumeration of the seven logical value kinds a CSV
// field can be coerced to. There is no subtyping: every field has exactly
// one kind, fixed by the schema.
type Kind int

const (
	Bool Kind = iota
	Int32
	Int64
	Double
	Date
	Oid
	String
)

// String renders the kind using its canonical sidecar spelling.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Double:
		return "double"
	case Date:
		return "date"
	case Oid:
		return "oid"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// kindFromText maps the accepted sidecar spellings to a Kind. Unknown text
// is reported to the caller rather than defaulted.
func kindFromText(s string) (Kind, bool) {
	switch s {
	case "int", "int32":
		return Int32, true
	case "int64", "long":
		return Int64, true
	case "double":
		return Double, true
	case "bool":
		return Bool, true
	case "oid":
		return Oid, true
	case "date":
		return Date, true
	case "string":
		return String, true
	default:
		return 0, false
	}
}

// Field is one ordered schema entry: a column name paired with its kind.
// Names need not be unique; duplicates are propagated verbatim.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered sequence of Fields loaded from a metadata sidecar.
// It is immutable after Load returns.
type Schema struct {
	Fields []Field
}

// Len returns the number of schema entries.
func (s Schema) Len() int { return len(s.Fields) }

// ParseError identifies which sidecar entry failed to load and why.
type ParseError struct {
	Index int
	Entry string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metadata entry %d (%q): %s", e.Index, e.Entry, e.Msg)
}

// Load parses a single metadata line of the form "NAME/KIND,NAME/KIND,...".
// Whitespace is significant; no trimming is performed, matching the sidecar
// format's byte-for-byte contract. Each entry must contain a '/' separator
// and non-empty kind text naming one of the recognized kinds; otherwise
// loading fails with an identifying error.
func Load(line string) (Schema, error) {
	entries := strings.Split(line, ",")
	fields := make([]Field, 0, len(entries))
	for i, entry := range entries {
		sep := strings.IndexByte(entry, '/')
		if sep < 0 {
			return Schema{}, &ParseError{Index: i, Entry: entry, Msg: "missing '/' separator"}
		}
		name := entry[:sep]
		kindText := entry[sep+1:]
		if kindText == "" {
			return Schema{}, &ParseError{Index: i, Entry: entry, Msg: "empty kind text"}
		}
		kind, ok := kindFromText(kindText)
		if !ok {
			return Schema{}, &ParseError{Index: i, Entry: entry, Msg: fmt.Sprintf("unknown kind %q", kindText)}
		}
		fields = append(fields, Field{Name: name, Kind: kind})
	}
	return Schema{Fields: fields}, nil
}

// LoadOrdered builds a Schema from an already-parsed sequence of
// name/kind-text pairs (the "canonical document form" path in spec §4.2(b)).
// The caller is responsible for supplying them in the intended field order;
// an unordered source (e.g. a map) has undefined behavior here, same as the
// source specification.
func LoadOrdered(pairs [][2]string) (Schema, error) {
	fields := make([]Field, 0, len(pairs))
	for i, p := range pairs {
		name, kindText := p[0], p[1]
		if kindText == "" {
			return Schema{}, &ParseError{Index: i, Entry: name, Msg: "empty kind text"}
		}
		kind, ok := kindFromText(kindText)
		if !ok {
			return Schema{}, &ParseError{Index: i, Entry: name, Msg: fmt.Sprintf("unknown kind %q", kindText)}
		}
		fields = append(fields, Field{Name: name, Kind: kind})
	}
	return Schema{Fields: fields}, nil
}
