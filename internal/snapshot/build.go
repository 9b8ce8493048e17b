// Package snapshot turns a parsed release into store-shaped load records and
// into bulk-import CSVs.
package snapshot

import (
	"sort"

	"github.com/yungbote/umls-graph-syncer/internal/biolink"
	"github.com/yungbote/umls-graph-syncer/internal/graph"
	"github.com/yungbote/umls-graph-syncer/internal/umls"
)

// RecordSet is the fully transformed snapshot: Biolink labels resolved,
// assertions aggregated with their provenance unioned, everything sorted so
// two builds of the same snapshot are byte-identical.
type RecordSet struct {
	Concepts    []graph.ConceptRecord
	Codes       []graph.CodeRecord
	Memberships []graph.MembershipRecord
	Assertions  []graph.AssertionRecord
}

// Build transforms a parsed snapshot into load records.
//
// Assertions aggregate by (source CUI, target CUI, source RELA); the
// asserting SAB sets are unioned per key. The RELA stays in the key so two
// assertions with different labels never collapse, even when both labels map
// to the same Biolink predicate.
func Build(snap *umls.Snapshot) *RecordSet {
	rs := &RecordSet{}

	for cui, c := range snap.Concepts {
		labelSet := map[string]struct{}{}
		for _, st := range snap.SemanticTypes[cui] {
			labelSet[biolink.CategoryForTUI(st.TUI)] = struct{}{}
		}
		categories := make([]string, 0, len(labelSet))
		for l := range labelSet {
			categories = append(categories, l)
		}
		sort.Strings(categories)
		// The base :Concept label always leads.
		labels := append([]string{"Concept"}, categories...)
		rs.Concepts = append(rs.Concepts, graph.ConceptRecord{
			CUI:           cui,
			PreferredName: c.PreferredName,
			Labels:        labels,
		})
	}
	sort.Slice(rs.Concepts, func(i, j int) bool { return rs.Concepts[i].CUI < rs.Concepts[j].CUI })

	for _, c := range snap.Codes {
		rs.Codes = append(rs.Codes, graph.CodeRecord{CodeID: c.CodeID, SAB: c.SAB, Name: c.Name})
	}
	sort.Slice(rs.Codes, func(i, j int) bool { return rs.Codes[i].CodeID < rs.Codes[j].CodeID })

	for _, m := range snap.ConceptCodes {
		rs.Memberships = append(rs.Memberships, graph.MembershipRecord{CUI: m.CUI, CodeID: m.CodeID})
	}
	sort.Slice(rs.Memberships, func(i, j int) bool {
		a, b := rs.Memberships[i], rs.Memberships[j]
		if a.CUI != b.CUI {
			return a.CUI < b.CUI
		}
		return a.CodeID < b.CodeID
	})

	rs.Assertions = aggregateAssertions(snap.Assertions)
	return rs
}

type assertionKey struct {
	sourceCUI  string
	targetCUI  string
	sourceRELA string
}

func aggregateAssertions(assertions []umls.Assertion) []graph.AssertionRecord {
	sabs := make(map[assertionKey][]string)
	for _, a := range assertions {
		key := assertionKey{a.SourceCUI, a.TargetCUI, a.SourceRELA}
		sabs[key] = graph.UnionSources(sabs[key], []string{a.SAB})
	}

	out := make([]graph.AssertionRecord, 0, len(sabs))
	for key, set := range sabs {
		out = append(out, graph.AssertionRecord{
			SourceCUI:  key.sourceCUI,
			TargetCUI:  key.targetCUI,
			SourceRELA: key.sourceRELA,
			Predicate:  biolink.PredicateForRELA(key.sourceRELA),
			SABs:       set,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SourceCUI != b.SourceCUI {
			return a.SourceCUI < b.SourceCUI
		}
		if a.TargetCUI != b.TargetCUI {
			return a.TargetCUI < b.TargetCUI
		}
		return a.SourceRELA < b.SourceRELA
	})
	return out
}
