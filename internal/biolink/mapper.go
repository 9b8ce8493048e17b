// Package biolink maps UMLS vocabulary onto the Biolink Model.
//
// The tables are representative, not exhaustive; the Biolink Model itself is
// the source of truth: https://github.com/biolink/biolink-model
package biolink

import "strings"

const (
	DefaultCategory  = "biolink:NamedThing"
	DefaultPredicate = "biolink:related_to"
)

// tuiCategories maps UMLS semantic types (TUIs) to Biolink categories.
var tuiCategories = map[string]string{
	// Disorders
	"T019": "biolink:Disease", // Congenital Abnormality
	"T020": "biolink:Disease", // Acquired Abnormality
	"T037": "biolink:Disease", // Injury or Poisoning
	"T047": "biolink:Disease", // Disease or Syndrome
	"T048": "biolink:Disease", // Mental or Behavioral Dysfunction
	"T049": "biolink:Disease", // Cell or Molecular Dysfunction
	"T190": "biolink:Disease", // Anatomical Abnormality
	"T191": "biolink:Disease", // Neoplastic Process
	// Chemicals & drugs
	"T109": "biolink:ChemicalEntity",    // Organic Chemical
	"T116": "biolink:AminoAcidSequence", // Amino Acid, Peptide, or Protein
	"T121": "biolink:Drug",              // Pharmacologic Substance
	"T123": "biolink:ChemicalEntity",    // Biologically Active Substance
	"T197": "biolink:ChemicalEntity",    // Inorganic Chemical
	"T200": "biolink:Drug",              // Clinical Drug
	// Genes & molecular
	"T028": "biolink:Gene",                // Gene or Genome
	"T114": "biolink:NucleicAcidSequence", // Nucleotide Sequence
	// Anatomy
	"T017": "biolink:AnatomicalEntity",  // Anatomical Structure
	"T023": "biolink:AnatomicalEntity",  // Body Part, Organ, or Organ Component
	"T024": "biolink:Tissue",            // Tissue
	"T025": "biolink:Cell",              // Cell
	"T026": "biolink:CellularComponent", // Cell Component
	// Phenotypes & findings
	"T033": "biolink:PhenotypicFeature", // Finding
	"T034": "biolink:LaboratoryFinding", // Laboratory or Test Result
	"T184": "biolink:SignOrSymptom",     // Sign or Symptom
	// Procedures
	"T061": "biolink:Procedure", // Therapeutic or Preventive Procedure
	// Biological processes
	"T039": "biolink:PhysiologicalProcess", // Physiologic Function
	"T040": "biolink:OrganismalProcess",    // Organism Function
	"T041": "biolink:PathologicalProcess",  // Pathologic Function
	"T043": "biolink:BiologicalProcess",    // Cell Function
}

type predicateMapping struct {
	keyword   string
	predicate string
}

// relaPredicates maps UMLS relationship attributes (RELA) to Biolink
// predicates. Held as an ordered slice so the keyword-substring fallback
// scans deterministically.
var relaPredicates = []predicateMapping{
	{"treats", "biolink:treats"},
	{"treated_by", "biolink:treated_by"},
	{"isa", "biolink:subclass_of"},
	{"part_of", "biolink:part_of"},
	{"has_part", "biolink:has_part"},
	{"associated_with", "biolink:related_to"},
	{"causes", "biolink:causes"},
	{"caused_by", "biolink:caused_by"},
	{"location_of", "biolink:location_of"},
	{"has_location", "biolink:located_in"}, // note inversion
	{"diagnoses", "biolink:diagnoses"},
	{"diagnosed_by", "biolink:biomarker_for"}, // approximation
	{"prevents", "biolink:prevents"},
	{"prevented_by", "biolink:prevented_by"},
	{"produces", "biolink:produces"},
	{"produced_by", "biolink:produced_by"},
	{"contraindicated_with", "biolink:contraindicated_in"},
}

var relaExact = func() map[string]string {
	m := make(map[string]string, len(relaPredicates))
	for _, p := range relaPredicates {
		m[p.keyword] = p.predicate
	}
	return m
}()

// CategoryForTUI maps a UMLS TUI to a Biolink category, defaulting to
// biolink:NamedThing for unmapped types.
func CategoryForTUI(tui string) string {
	if c, ok := tuiCategories[tui]; ok {
		return c
	}
	return DefaultCategory
}

// PredicateForRELA maps a UMLS RELA (or REL fallback) to a Biolink predicate.
// RELA values are often descriptive phrases, so after the exact lookup fails
// the table is scanned for a keyword substring match.
func PredicateForRELA(rela string) string {
	lower := strings.ToLower(rela)
	if p, ok := relaExact[lower]; ok {
		return p
	}
	for _, m := range relaPredicates {
		if strings.Contains(lower, m.keyword) {
			return m.predicate
		}
	}
	return DefaultPredicate
}
