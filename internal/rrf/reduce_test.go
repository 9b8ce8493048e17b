package rrf

import "testing"

func cand(cui, sab, code, name, ts, stt, ispref string) conceptCandidate {
	return conceptCandidate{
		CUI:  cui,
		Term: term{SAB: sab, Code: code, Name: name, TS: ts, STT: stt, ISPREF: ispref},
	}
}

func TestPriorityListDominatesRank(t *testing.T) {
	// S2 candidate has the maximum rank, S1 candidate the minimum; S1 leads
	// the priority list and must still win.
	cands := []conceptCandidate{
		cand("C1", "S2", "1", "high rank name", "P", "PF", "Y"),
		cand("C1", "S1", "2", "low rank name", "S", "VO", "N"),
	}
	concepts, _, _ := reduceConcepts(cands, []string{"S1", "S2"})
	if got := concepts["C1"].PreferredName; got != "low rank name" {
		t.Fatalf("preferred name = %q, want %q", got, "low rank name")
	}
}

func TestRankSelectsWithinPrioritySource(t *testing.T) {
	cands := []conceptCandidate{
		cand("C1", "S1", "1", "worse", "S", "PF", "Y"),  // rank 3
		cand("C1", "S1", "2", "better", "P", "PF", "N"), // rank 6
	}
	concepts, _, _ := reduceConcepts(cands, []string{"S1"})
	if got := concepts["C1"].PreferredName; got != "better" {
		t.Fatalf("preferred name = %q, want %q", got, "better")
	}
}

func TestUnlistedSourcesFallBackToBestRank(t *testing.T) {
	cands := []conceptCandidate{
		cand("C1", "X1", "1", "mid", "S", "PF", "Y"),  // rank 3
		cand("C1", "X2", "2", "best", "P", "VO", "Y"), // rank 5
		cand("C1", "X3", "3", "low", "S", "VO", "N"),  // rank 0
	}
	concepts, _, _ := reduceConcepts(cands, []string{"S1", "S2"})
	if got := concepts["C1"].PreferredName; got != "best" {
		t.Fatalf("preferred name = %q, want %q", got, "best")
	}
}

func TestRankTiesBreakToFirstCandidate(t *testing.T) {
	cands := []conceptCandidate{
		cand("C1", "X1", "1", "first", "P", "PF", "N"),
		cand("C1", "X2", "2", "second", "P", "PF", "N"),
	}
	concepts, _, _ := reduceConcepts(cands, nil)
	if got := concepts["C1"].PreferredName; got != "first" {
		t.Fatalf("preferred name = %q, want %q (stable tie-break)", got, "first")
	}
}

func TestCodesAndMembershipsDeduplicate(t *testing.T) {
	// Two rows for the same (SAB, code) under one CUI, one row sharing the
	// code value under another SAB.
	cands := []conceptCandidate{
		cand("C1", "S1", "100", "name a", "P", "PF", "Y"),
		cand("C1", "S1", "100", "name b", "S", "VO", "N"),
		cand("C1", "S2", "100", "name c", "S", "VO", "N"),
	}
	_, codes, memberships := reduceConcepts(cands, []string{"S1"})
	if len(codes) != 2 {
		t.Fatalf("codes = %d, want 2 (composite-key dedup)", len(codes))
	}
	if codes[0].CodeID != "S1:100" || codes[1].CodeID != "S2:100" {
		t.Fatalf("unexpected code ids: %v, %v", codes[0].CodeID, codes[1].CodeID)
	}
	if len(memberships) != 2 {
		t.Fatalf("memberships = %d, want 2", len(memberships))
	}
}

func TestEmptyInputYieldsNothing(t *testing.T) {
	concepts, codes, memberships := reduceConcepts(nil, []string{"S1"})
	if len(concepts) != 0 || len(codes) != 0 || len(memberships) != 0 {
		t.Fatal("expected empty output for empty input")
	}
}

func TestTermRankBits(t *testing.T) {
	cases := []struct {
		ts, stt, ispref string
		want            int
	}{
		{"P", "PF", "Y", 7},
		{"P", "PF", "N", 6},
		{"P", "VO", "Y", 5},
		{"S", "PF", "Y", 3},
		{"S", "VO", "N", 0},
	}
	for _, c := range cases {
		got := termRank(term{TS: c.ts, STT: c.stt, ISPREF: c.ispref})
		if got != c.want {
			t.Fatalf("termRank(%s,%s,%s) = %d, want %d", c.ts, c.stt, c.ispref, got, c.want)
		}
	}
}
