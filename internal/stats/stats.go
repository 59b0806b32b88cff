// Package stats tracks per-kind conversion failures, line-terminator mix,
// and throughput for a single streaming input session. All counters are
// monotonic 64-bit values updated with atomic operations so a Stats value
// can be read (snapshotted) from a different goroutine than the one
// advancing the stream, even though the stream itself is single-threaded.
package stats

import (
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Stats carries the independent monotonic counters from spec §4.1.
type Stats struct {
	InvalidInt32  atomic.Int64
	InvalidInt64  atomic.Int64
	InvalidDouble atomic.Int64
	InvalidBool   atomic.Int64
	InvalidDate   atomic.Int64
	InvalidOid    atomic.Int64

	OutOfRange         atomic.Int64
	IncompleteNumeric  atomic.Int64
	NonCompliantSchema atomic.Int64

	UnixFmt atomic.Int64
	DosFmt  atomic.Int64

	InputSize       atomic.Int64
	OutputSize      atomic.Int64
	RecordsReturned atomic.Int64

	TotalErrors atomic.Int64
}

// incErr bumps a per-kind counter and TotalErrors together, so the two can
// never drift apart.
func (s *Stats) incErr(counter *atomic.Int64) {
	counter.Add(1)
	s.TotalErrors.Add(1)
}

func (s *Stats) IncInvalidInt32()  { s.incErr(&s.InvalidInt32) }
func (s *Stats) IncInvalidInt64()  { s.incErr(&s.InvalidInt64) }
func (s *Stats) IncInvalidDouble() { s.incErr(&s.InvalidDouble) }
func (s *Stats) IncInvalidBool()   { s.incErr(&s.InvalidBool) }
func (s *Stats) IncInvalidDate()   { s.incErr(&s.InvalidDate) }
func (s *Stats) IncInvalidOid()    { s.incErr(&s.InvalidOid) }
func (s *Stats) IncOutOfRange()    { s.incErr(&s.OutOfRange) }
func (s *Stats) IncIncompleteNumeric()  { s.incErr(&s.IncompleteNumeric) }
func (s *Stats) IncNonCompliantSchema() { s.incErr(&s.NonCompliantSchema) }

// IncUnixFmt and IncDosFmt record line-terminator style. Neither is an
// error: they never touch TotalErrors.
func (s *Stats) IncUnixFmt() { s.UnixFmt.Add(1) }
func (s *Stats) IncDosFmt()  { s.DosFmt.Add(1) }

func (s *Stats) AddInputSize(n int)  { s.InputSize.Add(int64(n)) }
func (s *Stats) AddOutputSize(n int) { s.OutputSize.Add(int64(n)) }
func (s *Stats) IncRecordsReturned() { s.RecordsReturned.Add(1) }

// Snapshot is an immutable copy of the counters at an instant.
type Snapshot struct {
	InvalidInt32       int64
	InvalidInt64       int64
	InvalidDouble      int64
	InvalidBool        int64
	InvalidDate        int64
	InvalidOid         int64
	OutOfRange         int64
	IncompleteNumeric  int64
	NonCompliantSchema int64
	UnixFmt            int64
	DosFmt             int64
	InputSize          int64
	OutputSize         int64
	RecordsReturned    int64
	TotalErrors        int64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		InvalidInt32:       s.InvalidInt32.Load(),
		InvalidInt64:       s.InvalidInt64.Load(),
		InvalidDouble:      s.InvalidDouble.Load(),
		InvalidBool:        s.InvalidBool.Load(),
		InvalidDate:        s.InvalidDate.Load(),
		InvalidOid:         s.InvalidOid.Load(),
		OutOfRange:         s.OutOfRange.Load(),
		IncompleteNumeric:  s.IncompleteNumeric.Load(),
		NonCompliantSchema: s.NonCompliantSchema.Load(),
		UnixFmt:            s.UnixFmt.Load(),
		DosFmt:             s.DosFmt.Load(),
		InputSize:          s.InputSize.Load(),
		OutputSize:         s.OutputSize.Load(),
		RecordsReturned:    s.RecordsReturned.Load(),
		TotalErrors:        s.TotalErrors.Load(),
	}
}

// reset zeros every counter in place.
func (s *Stats) reset() {
	s.InvalidInt32.Store(0)
	s.InvalidInt64.Store(0)
	s.InvalidDouble.Store(0)
	s.InvalidBool.Store(0)
	s.InvalidDate.Store(0)
	s.InvalidOid.Store(0)
	s.OutOfRange.Store(0)
	s.IncompleteNumeric.Store(0)
	s.NonCompliantSchema.Store(0)
	s.UnixFmt.Store(0)
	s.DosFmt.Store(0)
	s.InputSize.Store(0)
	s.OutputSize.Store(0)
	s.RecordsReturned.Store(0)
	s.TotalErrors.Store(0)
}

// Extract copies the current counters and resets the live aggregate,
// matching the stream's "snapshot" operation (spec §4.6).
func (s *Stats) Extract() Snapshot {
	snap := s.snapshot()
	s.reset()
	return snap
}

// Release copies the current counters without resetting them, for use on
// stream shutdown when the live Stats value is about to be discarded
// anyway (spec §4.6 "release").
func (s *Stats) Release() Snapshot {
	return s.snapshot()
}

// Add returns the pointwise sum of two snapshots.
func Add(a, b Snapshot) Snapshot {
	return Snapshot{
		InvalidInt32:       a.InvalidInt32 + b.InvalidInt32,
		InvalidInt64:       a.InvalidInt64 + b.InvalidInt64,
		InvalidDouble:      a.InvalidDouble + b.InvalidDouble,
		InvalidBool:        a.InvalidBool + b.InvalidBool,
		InvalidDate:        a.InvalidDate + b.InvalidDate,
		InvalidOid:         a.InvalidOid + b.InvalidOid,
		OutOfRange:         a.OutOfRange + b.OutOfRange,
		IncompleteNumeric:  a.IncompleteNumeric + b.IncompleteNumeric,
		NonCompliantSchema: a.NonCompliantSchema + b.NonCompliantSchema,
		UnixFmt:            a.UnixFmt + b.UnixFmt,
		DosFmt:             a.DosFmt + b.DosFmt,
		InputSize:          a.InputSize + b.InputSize,
		OutputSize:         a.OutputSize + b.OutputSize,
		RecordsReturned:    a.RecordsReturned + b.RecordsReturned,
		TotalErrors:        a.TotalErrors + b.TotalErrors,
	}
}

// Document renders the snapshot as the canonical document form, nested
// under a "csv" sub-key, matching the field names of the original
// CsvFileIoStats::appendTo.
func (s Snapshot) Document() bson.D {
	return bson.D{{Key: "csv", Value: bson.D{
		{Key: "incompleteConversionToNumeric", Value: s.IncompleteNumeric},
		{Key: "invalidInt32", Value: s.InvalidInt32},
		{Key: "invalidInt64", Value: s.InvalidInt64},
		{Key: "invalidDouble", Value: s.InvalidDouble},
		{Key: "outOfRange", Value: s.OutOfRange},
		{Key: "invalidDate", Value: s.InvalidDate},
		{Key: "invalidOid", Value: s.InvalidOid},
		{Key: "invalidBoolean", Value: s.InvalidBool},
		{Key: "metadataAndDataDifferentLength", Value: s.NonCompliantSchema},
		{Key: "unixFormat", Value: s.UnixFmt},
		{Key: "dosFormat", Value: s.DosFmt},
		{Key: "totalErrorCount", Value: s.TotalErrors},
		{Key: "inputSize", Value: s.InputSize},
		{Key: "outputSize", Value: s.OutputSize},
		{Key: "bsonsReturned", Value: s.RecordsReturned},
	}}}
}

// LogValue implements slog.LogValuer so a Stats (or Snapshot) can be
// logged directly as a structured group, matching bjaus-etl's Stats.
func (s *Stats) LogValue() slog.Value {
	return s.snapshot().LogValue()
}

func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("invalid_int32", s.InvalidInt32),
		slog.Int64("invalid_int64", s.InvalidInt64),
		slog.Int64("invalid_double", s.InvalidDouble),
		slog.Int64("invalid_bool", s.InvalidBool),
		slog.Int64("invalid_date", s.InvalidDate),
		slog.Int64("invalid_oid", s.InvalidOid),
		slog.Int64("out_of_range", s.OutOfRange),
		slog.Int64("incomplete_numeric", s.IncompleteNumeric),
		slog.Int64("non_compliant_with_metadata", s.NonCompliantSchema),
		slog.Int64("unix_fmt", s.UnixFmt),
		slog.Int64("dos_fmt", s.DosFmt),
		slog.Int64("input_size", s.InputSize),
		slog.Int64("output_size", s.OutputSize),
		slog.Int64("records_returned", s.RecordsReturned),
		slog.Int64("total_errors", s.TotalErrors),
	)
}
