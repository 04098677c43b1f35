package notification

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"", Filter{}},
		{"dataType==PM_STATISTICAL;", Filter{DataType: "PM_STATISTICAL"}},
		{"dataType==PM_STATISTICAL", Filter{}},
		{"nodeType==RadioNode;id=gt=42", Filter{NodeType: "RadioNode", AfterID: 42}},
		{
			"dataType==PM_CELLTRACE*;nodeType==PCC;id=gt=1650000000000",
			Filter{DataType: "PM_CELLTRACE*", NodeType: "PCC", AfterID: 1650000000000},
		},
		{"id=gt=abc", Filter{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseFilter(tt.in)); diff != "" {
				t.Errorf("ParseFilter(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"PM_CELLTRACE", "PM_CELLTRACE", true},
		{"PM_CELLTRACE", "PM_CELLTRACE_CUUP", false},
		{"PM_CELLTRACE_*", "PM_CELLTRACE", false},
		{"PM_CELLTRACE_*", "PM_CELLTRACE_CUUP", true},
		{"PM_CELLTRACE*", "PM_CELLTRACE", true},
		{"PM_CELLTRACE*", "PM_CELLTRACE_DU", true},
		{"*", "PM_STATISTICAL", true},
		{"*STAT*", "PM_STATISTICAL", true},
		{"*_CUUP", "PM_CELLTRACE_CUUP", true},
		{"*_CUUP", "PM_CELLTRACE_CUCP", false},
		{"A*A", "A", false},
		{"PM_?", "PM_X", false},
	}

	for _, tt := range tests {
		if got := globMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestFilterMatch_NoDataType(t *testing.T) {
	r := Record{ID: 10, NodeType: "RadioNode"}

	if (Filter{DataType: "*"}).Match(r) {
		t.Error("record without data type matched a data type clause")
	}
	if !(Filter{NodeType: "RadioNode"}).Match(r) {
		t.Error("record should match a node type only filter")
	}
	if (Filter{AfterID: 10}).Match(r) {
		t.Error("id=gt must be strict")
	}
}

func seed(t *testing.T, s Sink) {
	t.Helper()
	notices := []Notice{
		{NodeName: "N0001", DataType: "PM_STATISTICAL", NodeType: "RadioNode", FileLocation: "/x/1"},
		{NodeName: "N0002", DataType: "PM_CELLTRACE", NodeType: "RadioNode", FileLocation: "/x/2"},
		{NodeName: "N0003", DataType: "PM_CELLTRACE_CUUP", NodeType: "RadioNode", FileLocation: "/x/3"},
		{NodeName: "P0001", DataType: "PM_STATISTICAL", NodeType: "PCC", FileLocation: "/x/4"},
		{NodeName: "Q0001", NodeType: "RadioNode", FileLocation: "/x/5"},
	}
	for _, n := range notices {
		if _, err := s.Append(context.Background(), n); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func locations(rs []Record) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.FileLocation)
	}
	return out
}

func testSinkQueries(t *testing.T, s Sink) {
	ctx := context.Background()
	seed(t, s)

	all, err := s.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Query(all) returned %d records, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID != all[i-1].ID+1 {
			t.Errorf("ids not consecutive: %d after %d", all[i].ID, all[i-1].ID)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"celltrace prefix", ParseFilter("dataType==PM_CELLTRACE*;"), []string{"/x/2", "/x/3"}},
		{"celltrace sub types", ParseFilter("dataType==PM_CELLTRACE_*;"), []string{"/x/3"}},
		{"star skips missing data type", ParseFilter("dataType==*;"), []string{"/x/1", "/x/2", "/x/3", "/x/4"}},
		{"node type", ParseFilter("nodeType==PCC;"), []string{"/x/4"}},
		{"after id", Filter{AfterID: all[2].ID}, []string{"/x/4", "/x/5"}},
		{"limit", Filter{Limit: 2}, []string{"/x/1", "/x/2"}},
		{"no match", ParseFilter("nodeType==PCG;"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, locations(got)); diff != "" {
				t.Errorf("Query() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	n, err := s.Len(ctx)
	if err != nil || n != 5 {
		t.Errorf("Len() = (%d, %v), want 5", n, err)
	}
}

func TestMemorySink(t *testing.T) {
	testSinkQueries(t, NewMemorySink())
}

func TestMemorySink_SeededIDs(t *testing.T) {
	s := NewMemorySinkWithSeed(1000)
	r, _ := s.Append(context.Background(), Notice{NodeName: "a"})
	if r.ID != 1001 {
		t.Errorf("first id = %d, want 1001", r.ID)
	}
}

func TestMemorySink_ConcurrentAppendUniqueIDs(t *testing.T) {
	s := NewMemorySinkWithSeed(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(context.Background(), Notice{DataType: "PM_STATISTICAL"})
		}()
	}
	wg.Wait()

	all, _ := s.Query(context.Background(), Filter{})
	for i, r := range all {
		if r.ID != int64(i+1) {
			t.Fatalf("record %d has id %d; ids must follow append order", i, r.ID)
		}
	}
}

func newTestSQLiteSink(t *testing.T, path string) *SQLiteSink {
	t.Helper()
	s, err := NewSQLiteSink(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteSink() error = %v", err)
	}
	return s
}

func TestSQLiteSink(t *testing.T) {
	s := newTestSQLiteSink(t, filepath.Join(t.TempDir(), "notifications.db"))
	defer s.Close()
	testSinkQueries(t, s)
}

func TestSQLiteSink_IDsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.db")
	ctx := context.Background()

	s := newTestSQLiteSink(t, path)
	first, err := s.Append(ctx, Notice{NodeName: "a", DataType: "PM_STATISTICAL"})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s = newTestSQLiteSink(t, path)
	defer s.Close()

	second, err := s.Append(ctx, Notice{NodeName: "b", DataType: "PM_STATISTICAL"})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID <= first.ID {
		t.Errorf("id after reopen = %d, want > %d", second.ID, first.ID)
	}

	got, err := s.Query(ctx, Filter{})
	if err != nil || len(got) != 2 {
		t.Fatalf("Query() = %v, %v", got, err)
	}
	if got[0].NodeType != "" {
		t.Errorf("empty node type round-tripped as %q", got[0].NodeType)
	}
}
