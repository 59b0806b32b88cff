package stats

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestIncrementsPairWithTotalErrors(t *testing.T) {
	t.Parallel()

	var s Stats
	s.IncInvalidInt32()
	s.IncInvalidDate()
	s.IncOutOfRange()

	snap := s.Release()
	if snap.InvalidInt32 != 1 || snap.InvalidDate != 1 || snap.OutOfRange != 1 {
		t.Fatalf("unexpected per-kind counters: %+v", snap)
	}
	if snap.TotalErrors != 3 {
		t.Fatalf("TotalErrors = %d, want 3", snap.TotalErrors)
	}
}

func TestFormatCountersDoNotAffectTotalErrors(t *testing.T) {
	t.Parallel()

	var s Stats
	s.IncUnixFmt()
	s.IncDosFmt()
	s.IncDosFmt()

	snap := s.Release()
	if snap.UnixFmt != 1 || snap.DosFmt != 2 {
		t.Fatalf("unexpected format counters: %+v", snap)
	}
	if snap.TotalErrors != 0 {
		t.Fatalf("TotalErrors = %d, want 0", snap.TotalErrors)
	}
}

func TestExtractResetsLiveCounters(t *testing.T) {
	t.Parallel()

	var s Stats
	s.IncInvalidBool()
	first := s.Extract()
	if first.InvalidBool != 1 {
		t.Fatalf("first snapshot InvalidBool = %d, want 1", first.InvalidBool)
	}

	second := s.Release()
	if second.InvalidBool != 0 || second.TotalErrors != 0 {
		t.Fatalf("counters not reset after Extract: %+v", second)
	}
}

func TestReleaseDoesNotReset(t *testing.T) {
	t.Parallel()

	var s Stats
	s.IncInvalidOid()
	first := s.Release()
	second := s.Release()
	if first != second {
		t.Fatalf("Release mutated state: %+v != %+v", first, second)
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	a := Snapshot{InvalidInt32: 1, TotalErrors: 1, InputSize: 10}
	b := Snapshot{InvalidInt32: 2, TotalErrors: 2, InputSize: 20}
	sum := Add(a, b)
	if sum.InvalidInt32 != 3 || sum.TotalErrors != 3 || sum.InputSize != 30 {
		t.Fatalf("Add = %+v, want InvalidInt32=3 TotalErrors=3 InputSize=30", sum)
	}
}

func TestDocumentNestsUnderCsvKey(t *testing.T) {
	t.Parallel()

	snap := Snapshot{InvalidInt32: 5, RecordsReturned: 9}
	doc := snap.Document()
	if len(doc) != 1 || doc[0].Key != "csv" {
		t.Fatalf("Document() top level = %+v, want single 'csv' key", doc)
	}

	inner, ok := doc[0].Value.(bson.D)
	if !ok {
		t.Fatalf("csv value is %T, want bson.D", doc[0].Value)
	}

	byKey := make(map[string]any, len(inner))
	for _, e := range inner {
		byKey[e.Key] = e.Value
	}
	if byKey["invalidInt32"] != int64(5) {
		t.Errorf("invalidInt32 = %v, want 5", byKey["invalidInt32"])
	}
	if byKey["bsonsReturned"] != int64(9) {
		t.Errorf("bsonsReturned = %v, want 9", byKey["bsonsReturned"])
	}
	if _, ok := byKey["totalErrorCount"]; !ok {
		t.Error("missing totalErrorCount key")
	}
}
