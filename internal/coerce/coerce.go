// Package coerce implements C5, the typed coercer: one function per field
// kind, converting a tokenized field view into the canonical document
// value, emitting a null and bumping the matching counter on any soft
// failure. Nothing here ever returns a Go error except the one fatal
// condition spec'd for strings (over-length fields).
package coerce

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"csvdoc/internal/schema"
	"csvdoc/internal/stats"
)

// maxStringBytes is the hard per-field limit on string-kind values.
const maxStringBytes = 65536

// oidPrefix is the case-insensitive literal prefix recognized for the
// objectid("…") surface form: 11 bytes, "objectid" + an opening paren and
// the doubled quote that opens a quoted CSV-level value.
const oidPrefix = `objectid(""`

// ErrStringTooLong is the one fatal condition this package can report: a
// string-kind field exceeding the 65536-byte scratch buffer.
type ErrStringTooLong struct {
	Size int
}

func (e *ErrStringTooLong) Error() string {
	return fmt.Sprintf("coerce: string field of %d bytes exceeds the %d-byte maximum", e.Size, maxStringBytes)
}

// Coercer owns the single reusable unescape scratch buffer used for
// string-kind fields containing escaped quotes.
type Coercer struct {
	scratch []byte
}

// New returns a Coercer with its scratch buffer pre-sized to the maximum
// a single field can need.
func New() *Coercer {
	return &Coercer{scratch: make([]byte, 0, maxStringBytes)}
}

// Append converts value according to field.Kind and appends exactly one
// entry named field.Name to *doc. An empty field view always yields null,
// regardless of kind. The only error this returns is ErrStringTooLong.
func (c *Coercer) Append(doc *bson.D, field schema.Field, value []byte, st *stats.Stats) error {
	if len(value) == 0 {
		*doc = append(*doc, bson.E{Key: field.Name, Value: nil})
		return nil
	}

	switch field.Kind {
	case schema.Bool:
		c.appendBool(doc, field.Name, value, st)
	case schema.Int32:
		c.appendInt32(doc, field.Name, value, st)
	case schema.Int64:
		c.appendInt64(doc, field.Name, value, st)
	case schema.Double:
		c.appendDouble(doc, field.Name, value, st)
	case schema.Date:
		c.appendDate(doc, field.Name, value, st)
	case schema.Oid:
		c.appendOid(doc, field.Name, value, st)
	case schema.String:
		return c.appendString(doc, field.Name, value, st)
	default:
		*doc = append(*doc, bson.E{Key: field.Name, Value: nil})
	}
	return nil
}

func appendNull(doc *bson.D, name string) {
	*doc = append(*doc, bson.E{Key: name, Value: nil})
}

// intPrefix scans the longest valid signed-integer prefix of b: an
// optional sign followed by one or more decimal digits. It reports 0,
// false if b has no such prefix (e.g. empty, or sign with no digits).
func intPrefix(b []byte) (int, bool) {
	i := 0
	n := len(b)
	if i < n && (b[i] == '+' || b[i] == '-') {
		i++
	}
	start := i
	for i < n && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	return i, true
}

func (c *Coercer) appendInt32(doc *bson.D, name string, value []byte, st *stats.Stats) {
	prefixLen, ok := intPrefix(value)
	if !ok {
		st.IncInvalidInt32()
		appendNull(doc, name)
		return
	}
	v, err := strconv.ParseInt(string(value[:prefixLen]), 10, 32)
	if err != nil {
		st.IncOutOfRange()
		appendNull(doc, name)
		return
	}
	if prefixLen != len(value) {
		st.IncIncompleteNumeric()
	}
	*doc = append(*doc, bson.E{Key: name, Value: int32(v)})
}

func (c *Coercer) appendInt64(doc *bson.D, name string, value []byte, st *stats.Stats) {
	prefixLen, ok := intPrefix(value)
	if !ok {
		st.IncInvalidInt64()
		appendNull(doc, name)
		return
	}
	v, err := strconv.ParseInt(string(value[:prefixLen]), 10, 64)
	if err != nil {
		st.IncOutOfRange()
		appendNull(doc, name)
		return
	}
	if prefixLen != len(value) {
		st.IncIncompleteNumeric()
	}
	*doc = append(*doc, bson.E{Key: name, Value: v})
}

func (c *Coercer) appendDouble(doc *bson.D, name string, value []byte, st *stats.Stats) {
	v, err := strconv.ParseFloat(string(value), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			st.IncOutOfRange()
		} else {
			st.IncInvalidDouble()
		}
		appendNull(doc, name)
		return
	}
	*doc = append(*doc, bson.E{Key: name, Value: v})
}

func (c *Coercer) appendBool(doc *bson.D, name string, value []byte, st *stats.Stats) {
	s := string(value)
	for _, truthy := range [...]string{"true", "t", "yes", "y", "1"} {
		if strings.EqualFold(s, truthy) {
			*doc = append(*doc, bson.E{Key: name, Value: true})
			return
		}
	}
	for _, falsy := range [...]string{"false", "f", "no", "n", "0"} {
		if strings.EqualFold(s, falsy) {
			*doc = append(*doc, bson.E{Key: name, Value: false})
			return
		}
	}
	st.IncInvalidBool()
	appendNull(doc, name)
}

func (c *Coercer) appendDate(doc *bson.D, name string, value []byte, st *stats.Stats) {
	s := string(value)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
	}
	if err != nil {
		st.IncInvalidDate()
		appendNull(doc, name)
		return
	}
	*doc = append(*doc, bson.E{Key: name, Value: bson.NewDateTimeFromTime(t)})
}

func (c *Coercer) appendOid(doc *bson.D, name string, value []byte, st *stats.Stats) {
	var data []byte
	switch {
	case len(value) >= len(oidPrefix)+3 &&
		strings.EqualFold(string(value[:len(oidPrefix)]), oidPrefix) &&
		value[len(value)-1] == ')':
		data = value[len(oidPrefix) : len(value)-3]
	case len(value) >= 4 && value[0] == '"' && value[len(value)-1] == '"':
		data = value[2 : len(value)-2]
	default:
		data = value
	}

	if len(data) != 24 {
		st.IncInvalidOid()
		appendNull(doc, name)
		return
	}

	oid, err := bson.ObjectIDFromHex(string(data))
	if err != nil {
		st.IncInvalidOid()
		appendNull(doc, name)
		return
	}
	*doc = append(*doc, bson.E{Key: name, Value: oid})
}

func (c *Coercer) appendString(doc *bson.D, name string, value []byte, st *stats.Stats) error {
	if len(value) > maxStringBytes {
		return &ErrStringTooLong{Size: len(value)}
	}

	if bytes.IndexByte(value, '"') < 0 {
		*doc = append(*doc, bson.E{Key: name, Value: string(value)})
		return nil
	}

	c.scratch = c.scratch[:0]
	start := 0
	i := 0
	for i < len(value) {
		if value[i] == '"' {
			i++
			c.scratch = append(c.scratch, value[start:i]...)
			start = i + 1
			i = start
			continue
		}
		i++
	}
	c.scratch = append(c.scratch, value[start:]...)
	*doc = append(*doc, bson.E{Key: name, Value: string(c.scratch)})
	return nil
}
