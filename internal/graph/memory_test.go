package graph

import (
	"context"
	"reflect"
	"testing"
)

func seedConcepts(t *testing.T, s *MemoryStore, version string, cuis ...string) {
	t.Helper()
	recs := make([]ConceptRecord, 0, len(cuis))
	for _, cui := range cuis {
		recs = append(recs, ConceptRecord{CUI: cui, PreferredName: "name " + cui, Labels: []string{"Concept"}})
	}
	if err := s.UpsertConcepts(context.Background(), recs, version); err != nil {
		t.Fatalf("UpsertConcepts: %v", err)
	}
}

func TestUpsertConceptLabelsAreAdditive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1")
	if err := s.UpsertConcepts(ctx, []ConceptRecord{
		{CUI: "C1", PreferredName: "renamed", Labels: []string{"Concept", "biolink:Drug"}},
	}, "v2"); err != nil {
		t.Fatalf("UpsertConcepts: %v", err)
	}
	if got := s.PreferredName("C1"); got != "renamed" {
		t.Fatalf("preferred name = %q", got)
	}
	if got := s.ConceptLabels("C1"); !reflect.DeepEqual(got, []string{"Concept", "biolink:Drug"}) {
		t.Fatalf("labels = %v", got)
	}
}

func TestUpsertAssertionUnionsProvenance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1", "C2")

	rec := AssertionRecord{SourceCUI: "C1", TargetCUI: "C2", SourceRELA: "treats", Predicate: "biolink:treats"}
	rec.SABs = []string{"S1"}
	if err := s.UpsertAssertions(ctx, []AssertionRecord{rec}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}
	rec.SABs = []string{"S2"}
	if err := s.UpsertAssertions(ctx, []AssertionRecord{rec}, "v2"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}

	edges := s.Assertions()
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}
	if !reflect.DeepEqual(edges[0].SABs, []string{"S1", "S2"}) {
		t.Fatalf("sabs = %v, want [S1 S2]", edges[0].SABs)
	}
}

func TestUpsertSkipsMissingEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1")

	if err := s.UpsertAssertions(ctx, []AssertionRecord{
		{SourceCUI: "C1", TargetCUI: "C9", Predicate: "biolink:related_to", SABs: []string{"S1"}},
	}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}
	if got := s.Assertions(); len(got) != 0 {
		t.Fatalf("edge to missing concept was created: %v", got)
	}

	if err := s.UpsertMemberships(ctx, []MembershipRecord{{CUI: "C1", CodeID: "S1:1"}}, "v1"); err != nil {
		t.Fatalf("UpsertMemberships: %v", err)
	}
	if got := s.Memberships(); len(got) != 0 {
		t.Fatalf("membership to missing code was created: %v", got)
	}
}

func TestDeleteConceptsDetaches(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1", "C2")
	if err := s.UpsertCodes(ctx, []CodeRecord{{CodeID: "S1:1", SAB: "S1"}}, "v1"); err != nil {
		t.Fatalf("UpsertCodes: %v", err)
	}
	if err := s.UpsertMemberships(ctx, []MembershipRecord{{CUI: "C1", CodeID: "S1:1"}}, "v1"); err != nil {
		t.Fatalf("UpsertMemberships: %v", err)
	}
	if err := s.UpsertAssertions(ctx, []AssertionRecord{
		{SourceCUI: "C2", TargetCUI: "C1", Predicate: "biolink:related_to", SABs: []string{"S1"}},
	}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}

	// Absent CUIs are silently skipped.
	if err := s.DeleteConcepts(ctx, []string{"C1", "C9"}); err != nil {
		t.Fatalf("DeleteConcepts: %v", err)
	}
	if s.HasConcept("C1") || !s.HasConcept("C2") {
		t.Fatal("wrong concept deleted")
	}
	if len(s.Memberships()) != 0 || len(s.Assertions()) != 0 {
		t.Fatal("incident relationships survived the delete")
	}
	if !s.HasCode("S1:1") {
		t.Fatal("code node should survive concept deletion")
	}
}

func TestMergeConceptMissingEndpointIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1")

	applied, err := s.MergeConcept(ctx, "C1", "C9", "v2")
	if err != nil {
		t.Fatalf("MergeConcept: %v", err)
	}
	if applied {
		t.Fatal("merge into an absent concept must not apply")
	}
	if !s.HasConcept("C1") {
		t.Fatal("old concept must survive a skipped merge")
	}

	applied, err = s.MergeConcept(ctx, "C9", "C1", "v2")
	if err != nil || applied {
		t.Fatalf("merge of an absent concept: applied=%v err=%v", applied, err)
	}
}

func TestMergeConceptMigratesEdgesAndUnionsProvenance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "A", "B", "N")
	if err := s.UpsertCodes(ctx, []CodeRecord{{CodeID: "S1:1", SAB: "S1"}}, "v1"); err != nil {
		t.Fatalf("UpsertCodes: %v", err)
	}
	if err := s.UpsertMemberships(ctx, []MembershipRecord{{CUI: "A", CodeID: "S1:1"}}, "v1"); err != nil {
		t.Fatalf("UpsertMemberships: %v", err)
	}
	if err := s.UpsertAssertions(ctx, []AssertionRecord{
		{SourceCUI: "A", TargetCUI: "N", SourceRELA: "treats", Predicate: "biolink:treats", SABs: []string{"S1"}},
		{SourceCUI: "B", TargetCUI: "N", SourceRELA: "treats", Predicate: "biolink:treats", SABs: []string{"S2"}},
	}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}

	applied, err := s.MergeConcept(ctx, "A", "B", "v2")
	if err != nil {
		t.Fatalf("MergeConcept: %v", err)
	}
	if !applied {
		t.Fatal("merge with both endpoints present must apply")
	}
	if s.HasConcept("A") {
		t.Fatal("old concept survived the merge")
	}

	memberships := s.Memberships()
	if !reflect.DeepEqual(memberships, []MembershipRecord{{CUI: "B", CodeID: "S1:1"}}) {
		t.Fatalf("memberships = %v", memberships)
	}

	edges := s.Assertions()
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want the two parallel edges collapsed to one", len(edges))
	}
	if edges[0].SourceCUI != "B" || edges[0].TargetCUI != "N" {
		t.Fatalf("edge endpoints = %s -> %s", edges[0].SourceCUI, edges[0].TargetCUI)
	}
	if !reflect.DeepEqual(edges[0].SABs, []string{"S1", "S2"}) {
		t.Fatalf("merged provenance = %v, want [S1 S2]", edges[0].SABs)
	}
}

func TestMergeConceptRepointsSelfLoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "A", "N")
	if err := s.UpsertAssertions(ctx, []AssertionRecord{
		{SourceCUI: "A", TargetCUI: "N", SourceRELA: "isa", Predicate: "biolink:subclass_of", SABs: []string{"S1"}},
		{SourceCUI: "N", TargetCUI: "A", SourceRELA: "has_part", Predicate: "biolink:has_part", SABs: []string{"S1"}},
	}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}

	if _, err := s.MergeConcept(ctx, "A", "N", "v2"); err != nil {
		t.Fatalf("MergeConcept: %v", err)
	}
	edges := s.Assertions()
	if len(edges) != 2 {
		t.Fatalf("edges = %d, want 2 self-loops with distinct RELAs", len(edges))
	}
	for _, e := range edges {
		if e.SourceCUI != "N" || e.TargetCUI != "N" {
			t.Fatalf("edge %s -> %s, want self-loop at N", e.SourceCUI, e.TargetCUI)
		}
	}
}

func TestSweepStaleSparesConcepts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedConcepts(t, s, "v1", "C1", "C2", "C3")
	if err := s.UpsertCodes(ctx, []CodeRecord{
		{CodeID: "S1:1", SAB: "S1"}, {CodeID: "S1:2", SAB: "S1"},
	}, "v1"); err != nil {
		t.Fatalf("UpsertCodes: %v", err)
	}
	if err := s.UpsertMemberships(ctx, []MembershipRecord{
		{CUI: "C1", CodeID: "S1:1"}, {CUI: "C2", CodeID: "S1:2"},
	}, "v1"); err != nil {
		t.Fatalf("UpsertMemberships: %v", err)
	}
	if err := s.UpsertAssertions(ctx, []AssertionRecord{
		{SourceCUI: "C1", TargetCUI: "C2", SourceRELA: "treats", Predicate: "biolink:treats", SABs: []string{"S1"}},
	}, "v1"); err != nil {
		t.Fatalf("UpsertAssertions: %v", err)
	}

	// v2 re-asserts only C1, its code and its membership.
	seedConcepts(t, s, "v2", "C1")
	if err := s.UpsertCodes(ctx, []CodeRecord{{CodeID: "S1:1", SAB: "S1"}}, "v2"); err != nil {
		t.Fatalf("UpsertCodes: %v", err)
	}
	if err := s.UpsertMemberships(ctx, []MembershipRecord{{CUI: "C1", CodeID: "S1:1"}}, "v2"); err != nil {
		t.Fatalf("UpsertMemberships: %v", err)
	}

	if err := s.SweepStale(ctx, "v2"); err != nil {
		t.Fatalf("SweepStale: %v", err)
	}

	// Stale concepts survive; only change lists remove them.
	if s.ConceptCount() != 3 {
		t.Fatalf("concepts = %d, want 3", s.ConceptCount())
	}
	if s.HasCode("S1:2") {
		t.Fatal("stale code survived the sweep")
	}
	if got := s.Memberships(); !reflect.DeepEqual(got, []MembershipRecord{{CUI: "C1", CodeID: "S1:1"}}) {
		t.Fatalf("memberships = %v", got)
	}
	if got := s.Assertions(); len(got) != 0 {
		t.Fatalf("stale assertions survived: %v", got)
	}
}
