package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestEscapeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Concept", "`Concept`"},
		{"biolink:treats", "`biolink:treats`"},
		{"weird`name", "`weird``name`"},
	}
	for _, c := range cases {
		if got := escapeName(c.in); got != c.want {
			t.Fatalf("escapeName(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestVersionFromRecords(t *testing.T) {
	// Zero rows is the never-initialized case; it is distinct from a read
	// error, which Version surfaces instead of mapping to "".
	if got := versionFromRecords(nil); got != "" {
		t.Fatalf("empty result = %q, want empty version", got)
	}
	rec := &neo4j.Record{Keys: []string{"version"}, Values: []any{"2025AA"}}
	if got := versionFromRecords([]*neo4j.Record{rec}); got != "2025AA" {
		t.Fatalf("version = %q, want 2025AA", got)
	}
	null := &neo4j.Record{Keys: []string{"version"}, Values: []any{nil}}
	if got := versionFromRecords([]*neo4j.Record{null}); got != "" {
		t.Fatalf("null version = %q, want empty", got)
	}
}
