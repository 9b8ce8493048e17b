package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

// Bulk-import CSV file names, fixed because the neo4j-admin command printed
// by full-import references them by name inside the import directory.
const (
	ConceptsCSV     = "nodes_concepts.csv"
	CodesCSV        = "nodes_codes.csv"
	HasCodeCSV      = "rels_has_code.csv"
	InterConceptCSV = "rels_inter_concept.csv"
)

// listSeparator joins list-valued columns (:LABEL, string[]) inside a single
// CSV field.
const listSeparator = ";"

// Writer serializes a RecordSet into neo4j-admin bulk-import CSVs with typed
// header annotations.
type Writer struct {
	dir string
	log *logger.Logger
}

func NewWriter(dir string, log *logger.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create import dir: %w", err)
	}
	return &Writer{dir: dir, log: log.With("component", "snapshot_writer")}, nil
}

// WriteAll writes the four CSV files for one versioned snapshot.
func (w *Writer) WriteAll(rs *RecordSet, version string) error {
	if err := w.writeConcepts(rs, version); err != nil {
		return err
	}
	if err := w.writeCodes(rs, version); err != nil {
		return err
	}
	if err := w.writeMemberships(rs, version); err != nil {
		return err
	}
	return w.writeAssertions(rs, version)
}

func (w *Writer) writeConcepts(rs *RecordSet, version string) error {
	header := []string{"cui:ID(Concept-ID)", "preferred_name:string", "last_seen_version:string", ":LABEL"}
	rows := make([][]string, 0, len(rs.Concepts))
	for _, c := range rs.Concepts {
		rows = append(rows, []string{c.CUI, c.PreferredName, version, strings.Join(c.Labels, listSeparator)})
	}
	return w.writeCSV(ConceptsCSV, header, rows)
}

func (w *Writer) writeCodes(rs *RecordSet, version string) error {
	header := []string{"code_id:ID(Code-ID)", "sab:string", "name:string", "last_seen_version:string"}
	rows := make([][]string, 0, len(rs.Codes))
	for _, c := range rs.Codes {
		rows = append(rows, []string{c.CodeID, c.SAB, c.Name, version})
	}
	return w.writeCSV(CodesCSV, header, rows)
}

func (w *Writer) writeMemberships(rs *RecordSet, version string) error {
	header := []string{":START_ID(Concept-ID)", ":END_ID(Code-ID)", "last_seen_version:string", ":TYPE"}
	rows := make([][]string, 0, len(rs.Memberships))
	for _, m := range rs.Memberships {
		rows = append(rows, []string{m.CUI, m.CodeID, version, "HAS_CODE"})
	}
	return w.writeCSV(HasCodeCSV, header, rows)
}

func (w *Writer) writeAssertions(rs *RecordSet, version string) error {
	header := []string{
		":START_ID(Concept-ID)", ":END_ID(Concept-ID)", "source_rela:string",
		"asserted_by_sabs:string[]", "last_seen_version:string", ":TYPE",
	}
	rows := make([][]string, 0, len(rs.Assertions))
	for _, a := range rs.Assertions {
		rows = append(rows, []string{
			a.SourceCUI,
			a.TargetCUI,
			a.SourceRELA,
			strings.Join(a.SABs, listSeparator),
			version,
			a.Predicate,
		})
	}
	return w.writeCSV(InterConceptCSV, header, rows)
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	w.log.Info("wrote snapshot csv", "file", name, "rows", len(rows))
	return nil
}

// BulkImportCommand renders the neo4j-admin command for a one-time full
// import of the CSVs this writer produces. Paths are bare file names because
// neo4j-admin resolves them against its configured import directory.
func BulkImportCommand(database string) string {
	return fmt.Sprintf(`neo4j-admin database import full \
    --nodes=Concept:Concept-ID=%q \
    --nodes=Code:Code-ID=%q \
    --relationships=HAS_CODE=%q \
    --relationships=%q \
    --overwrite-destination=true \
    %s`, ConceptsCSV, CodesCSV, HasCodeCSV, InterConceptCSV, database)
}
