package snapshot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yungbote/umls-graph-syncer/internal/graph"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func readCSV(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return rows
}

func TestWriteAllProducesTypedCSVs(t *testing.T) {
	rs := &RecordSet{
		Concepts: []graph.ConceptRecord{
			{CUI: "C1", PreferredName: "Aspirin", Labels: []string{"Concept", "biolink:Drug"}},
		},
		Codes: []graph.CodeRecord{
			{CodeID: "RXNORM:1191", SAB: "RXNORM", Name: "aspirin"},
		},
		Memberships: []graph.MembershipRecord{
			{CUI: "C1", CodeID: "RXNORM:1191"},
		},
		Assertions: []graph.AssertionRecord{
			{SourceCUI: "C1", TargetCUI: "C2", SourceRELA: "treats", Predicate: "biolink:treats", SABs: []string{"RXNORM", "SNOMEDCT_US"}},
		},
	}

	dir := t.TempDir()
	w, err := NewWriter(dir, testLogger(t))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteAll(rs, "2025AB"); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	concepts := readCSV(t, dir, ConceptsCSV)
	wantHeader := []string{"cui:ID(Concept-ID)", "preferred_name:string", "last_seen_version:string", ":LABEL"}
	if !reflect.DeepEqual(concepts[0], wantHeader) {
		t.Fatalf("concept header = %v", concepts[0])
	}
	if !reflect.DeepEqual(concepts[1], []string{"C1", "Aspirin", "2025AB", "Concept;biolink:Drug"}) {
		t.Fatalf("concept row = %v", concepts[1])
	}

	codes := readCSV(t, dir, CodesCSV)
	if !reflect.DeepEqual(codes[1], []string{"RXNORM:1191", "RXNORM", "aspirin", "2025AB"}) {
		t.Fatalf("code row = %v", codes[1])
	}

	memberships := readCSV(t, dir, HasCodeCSV)
	if !reflect.DeepEqual(memberships[1], []string{"C1", "RXNORM:1191", "2025AB", "HAS_CODE"}) {
		t.Fatalf("membership row = %v", memberships[1])
	}

	rels := readCSV(t, dir, InterConceptCSV)
	if !reflect.DeepEqual(rels[1], []string{"C1", "C2", "treats", "RXNORM;SNOMEDCT_US", "2025AB", "biolink:treats"}) {
		t.Fatalf("assertion row = %v", rels[1])
	}
}

func TestWriteAllEmptyRecordSet(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, testLogger(t))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteAll(&RecordSet{}, "2025AB"); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	for _, name := range []string{ConceptsCSV, CodesCSV, HasCodeCSV, InterConceptCSV} {
		rows := readCSV(t, dir, name)
		if len(rows) != 1 {
			t.Fatalf("%s: %d rows, want header only", name, len(rows))
		}
	}
}

func TestBulkImportCommandReferencesAllFiles(t *testing.T) {
	cmd := BulkImportCommand("neo4j")
	for _, name := range []string{ConceptsCSV, CodesCSV, HasCodeCSV, InterConceptCSV} {
		if !strings.Contains(cmd, name) {
			t.Fatalf("command missing %s:\n%s", name, cmd)
		}
	}
	if !strings.HasSuffix(cmd, "neo4j") {
		t.Fatalf("command should end with the database name:\n%s", cmd)
	}
}
