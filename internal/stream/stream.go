// Package stream implements C6, the streaming input façade: the single
// public entry point that opens a CSV data file plus its metadata
// sidecar, pulls one encoded document per Read call, and exposes the
// lifetime/observability predicates a caller drives it with.
package stream

import (
	"bufio"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/v2/bson"

	"csvdoc/internal/coerce"
	"csvdoc/internal/mmapfile"
	"csvdoc/internal/pathutil"
	"csvdoc/internal/recordscan"
	"csvdoc/internal/schema"
	"csvdoc/internal/stats"
	"csvdoc/internal/tokenize"
)

// state is the façade's lifecycle, matching spec's Closed → Open →
// (Open | Failed | Eof) → Closed machine.
type state int

const (
	stateClosed state = iota
	stateOpen
	stateFailed
	stateEof
)

// Stream is a single CSV-to-document streaming session. It is not safe
// for concurrent use: exactly one caller drives it at a time, matching
// the single-threaded, pull-based model the core requires.
type Stream struct {
	dataPath string
	metaPath string

	st    state
	image *mmapfile.File
	sc    *recordscan.Scanner
	sch   schema.Schema
	coer  *coerce.Coercer
	stats stats.Stats

	onNonCompliant func(rec []byte)
}

// OnNonCompliant registers a callback invoked with the raw record bytes
// whenever a record's field count disagrees with the schema (the same
// condition that increments NonCompliantSchema). Optional; used by
// callers that want per-record diagnostics without the core itself
// logging anything. Must be set before the first Read.
func (s *Stream) OnNonCompliant(fn func(rec []byte)) {
	s.onNonCompliant = fn
}

// New returns an unopened Stream for the given data/metadata relative
// paths, resolved against dir. Paths containing ".." are rejected
// immediately, before any I/O, matching §4.6's "path rejected" class.
func New(dir, dataRelPath, metaRelPath string) (*Stream, error) {
	dataPath, err := pathutil.Resolve(dir, dataRelPath)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	metaPath, err := pathutil.Resolve(dir, metaRelPath)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	return &Stream{dataPath: dataPath, metaPath: metaPath}, nil
}

// Open loads the schema, opens and maps the data file, and transitions
// the stream to Open. Calling Open from any state other than Closed is
// undefined, as in the source spec.
func (s *Stream) Open() error {
	sch, err := loadSchema(s.metaPath)
	if err != nil {
		s.st = stateFailed
		return fmt.Errorf("stream: load schema: %w", err)
	}

	image, err := mmapfile.Open(s.dataPath)
	if err != nil {
		s.st = stateFailed
		return fmt.Errorf("stream: open data file: %w", err)
	}

	s.sch = sch
	s.image = image
	s.sc = recordscan.New(image.Bytes())
	s.coer = coerce.New()
	s.st = stateOpen
	return nil
}

// loadSchema reads the metadata sidecar's first line and parses it.
func loadSchema(path string) (schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return schema.Schema{}, fmt.Errorf("read metadata line: %w", err)
	}
	line = trimNewline(line)

	sch, err := schema.Load(line)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("parse metadata: %w", err)
	}
	return sch, nil
}

func trimNewline(s string) string {
	n := len(s)
	if n > 0 && s[n-1] == '\n' {
		n--
	}
	if n > 0 && s[n-1] == '\r' {
		n--
	}
	return s[:n]
}

// Close unmaps and closes the data file. Idempotent: calling Close more
// than once, or before Open, leaves the stream Closed.
func (s *Stream) Close() error {
	if s.st == stateClosed {
		return nil
	}
	var err error
	if s.image != nil {
		err = s.image.Close()
	}
	s.st = stateClosed
	return err
}

// IsOpen reports whether the stream is in any state other than Closed
// (Open, Failed or Eof). It is also true after a failed Open.
func (s *Stream) IsOpen() bool { return s.st != stateClosed }

// IsGood reports whether the stream can still be read from.
func (s *Stream) IsGood() bool { return s.st == stateOpen }

// IsFailed reports whether Open failed, or a fatal error occurred during
// reading (buffer too small, over-length string field).
func (s *Stream) IsFailed() bool { return s.st == stateFailed }

// IsEof reports whether the stream has reached (possibly forced) EOF.
func (s *Stream) IsEof() bool { return s.st == stateEof }

// Read pulls the next non-empty record, tokenizes and coerces its fields,
// and encodes exactly one document into buf. It returns 0 at EOF and
// never writes a partial document. A buffer smaller than the encoded
// document, or a string field over 65536 bytes, is a fatal error that
// moves the stream to Failed.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.st != stateOpen {
		return 0, nil
	}

	rec, ok := s.nextNonEmptyRecord()
	if !ok {
		s.st = stateEof
		return 0, nil
	}

	s.stats.AddInputSize(len(rec))

	fields := tokenize.Fields(rec)
	if len(fields) != len(s.sch.Fields) {
		s.stats.IncNonCompliantSchema()
		if s.onNonCompliant != nil {
			s.onNonCompliant(rec)
		}
	}

	n := len(fields)
	if len(s.sch.Fields) < n {
		n = len(s.sch.Fields)
	}

	doc := make(bson.D, 0, n)
	for i := 0; i < n; i++ {
		if err := s.coer.Append(&doc, s.sch.Fields[i], fields[i], &s.stats); err != nil {
			s.st = stateFailed
			return 0, fmt.Errorf("stream: %w", err)
		}
	}

	encoded, err := bson.Marshal(doc)
	if err != nil {
		s.st = stateFailed
		return 0, fmt.Errorf("stream: encode document: %w", err)
	}
	if len(encoded) > len(buf) {
		s.st = stateFailed
		return 0, fmt.Errorf("stream: buffer too small: need %d bytes, have %d", len(encoded), len(buf))
	}

	copy(buf, encoded)
	s.stats.AddOutputSize(len(encoded))
	s.stats.IncRecordsReturned()
	return len(encoded), nil
}

// nextNonEmptyRecord repeatedly pulls records from the scanner, skipping
// empty payloads, until a non-empty one or EOF appears.
func (s *Stream) nextNonEmptyRecord() ([]byte, bool) {
	for {
		rec, ok := s.sc.Next(&s.stats)
		if !ok {
			return nil, false
		}
		if len(rec) > 0 {
			return rec, true
		}
	}
}

// Snapshot copies and resets the live statistics aggregate.
func (s *Stream) Snapshot() stats.Snapshot {
	return s.stats.Extract()
}

// Release copies the live statistics aggregate without resetting it, for
// use on shutdown.
func (s *Stream) Release() stats.Snapshot {
	return s.stats.Release()
}
