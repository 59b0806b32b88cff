// Package recordscan implements C3, the record reader: it advances a
// cursor through a memory-mapped CSV image one RFC-4180 logical record at
// a time, tracking quote state byte by byte and forcing a permanent EOF
// the moment it observes a quoting violation.
package recordscan

import (
	"log"

	"csvdoc/internal/stats"
)

// Scanner walks a mapped byte image, handing back one borrowed record
// slice per call to Next. It holds no reference to the file itself — only
// to the bytes and the cursor.
type Scanner struct {
	data     []byte
	pos      int
	terminal bool
}

// New returns a Scanner positioned at the start of data.
func New(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Pos returns the current cursor offset into the image.
func (s *Scanner) Pos() int { return s.pos }

// Eof reports whether the cursor has reached the end of the image,
// whether by natural exhaustion or by a forced terminal stop.
func (s *Scanner) Eof() bool {
	return s.terminal || s.pos >= len(s.data)
}

// Terminal reports whether the scanner hit an RFC-4180 violation and is
// permanently stuck at EOF.
func (s *Scanner) Terminal() bool { return s.terminal }

// Next returns the next logical record, stripped of its trailing newline
// (and preceding \r, if present). It reports ok=false at EOF, including
// the permanent EOF a quote violation forces. st is credited with
// unix_fmt/dos_fmt for a successfully terminated record; callers are
// expected to loop past empty records themselves (spec's "empty-line
// policy" is a C6 concern, not this scanner's).
func (s *Scanner) Next(st *stats.Stats) (record []byte, ok bool) {
	if s.Eof() {
		return nil, false
	}

	data := s.data
	n := len(data)
	start := s.pos
	offset := start

	quoteOpen := data[offset] == '"'
	if quoteOpen {
		offset++
	}

	violation := false
	for offset < n && (data[offset] != '\n' || quoteOpen) {
		if data[offset] == '"' {
			switch {
			case !quoteOpen && offset > 0 && data[offset-1] == ',':
				quoteOpen = true
			case quoteOpen && (offset+1 >= n || data[offset+1] == ',' || data[offset+1] == '\r' || data[offset+1] == '\n'):
				quoteOpen = false
			case quoteOpen && offset+1 < n && data[offset+1] == '"':
				offset++
			default:
				violation = true
			}
			if violation {
				break
			}
		}
		offset++
	}

	if violation || quoteOpen {
		log.Printf("recordscan: csv image violates RFC 4180 at offset %d, rest of file is skipped", offset)
		s.pos = n
		s.terminal = true
		return nil, false
	}

	var end int
	if offset > 1 && data[offset-1] == '\r' {
		end = offset - 1
		st.IncDosFmt()
	} else {
		end = offset
		st.IncUnixFmt()
	}

	s.pos = offset + 1
	return data[start:end], true
}
