package umls

// Concept is a canonical UMLS concept (CUI). One graph node with the
// :Concept label plus its Biolink category labels.
type Concept struct {
	CUI           string
	PreferredName string
}

// Code is a source-vocabulary identifier/name pair. CodeID is the composite
// "SAB:CODE" key and is globally unique, not concept-scoped.
type Code struct {
	CodeID string
	SAB    string
	Name   string
}

// ConceptCode is the membership pair behind a (:Concept)-[:HAS_CODE]->(:Code)
// edge, unique per (CUI, CodeID).
type ConceptCode struct {
	CUI    string
	CodeID string
}

// Assertion is a single raw relationship assertion between two concepts from
// MRREL, before provenance aggregation. SourceRELA carries RELA with the
// mandatory fallback to REL already applied.
type Assertion struct {
	SourceCUI  string
	TargetCUI  string
	SourceRELA string
	SAB        string
}

// SemanticType is one MRSTY assignment for a CUI.
type SemanticType struct {
	CUI string
	TUI string
	STY string
}

// Snapshot is the full extracted state of one versioned release, ready for
// transformation into load records or bulk-import CSVs.
type Snapshot struct {
	Concepts      map[string]Concept
	Codes         []Code
	ConceptCodes  []ConceptCode
	Assertions    []Assertion
	SemanticTypes map[string][]SemanticType
}
