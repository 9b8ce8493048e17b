package rrf

import (
	"github.com/yungbote/umls-graph-syncer/internal/umls"
)

// termRank is the secondary preferred-name score. Higher is better. The bits
// mirror UMLS term-status flags: preferred term for the concept, preferred
// form of the term, preferred string within its source.
func termRank(t term) int {
	rank := 0
	if t.TS == "P" {
		rank += 4
	}
	if t.STT == "PF" {
		rank += 2
	}
	if t.ISPREF == "Y" {
		rank += 1
	}
	return rank
}

// reduceConcepts groups accepted MRCONSO rows by CUI and resolves exactly one
// preferred name per concept:
//
//  1. the SAB priority list strictly dominates: the first listed source with
//     any candidate wins, choosing by termRank among its candidates;
//  2. with no priority-listed source present, the best termRank across all
//     candidates wins.
//
// Ties break to the first-encountered candidate (input order is stable).
// Every candidate row also yields one Code and one membership pair, deduped
// by composite key independent of which row produced them. A CUI with zero
// surviving rows never reaches this function and so is dropped silently.
func reduceConcepts(cands []conceptCandidate, sabPriority []string) (map[string]umls.Concept, []umls.Code, []umls.ConceptCode) {
	priorityIdx := make(map[string]int, len(sabPriority))
	for i, sab := range sabPriority {
		priorityIdx[sab] = i
	}
	unranked := len(sabPriority)

	concepts := make(map[string]umls.Concept)
	var codes []umls.Code
	seenCodes := make(map[string]struct{})
	var memberships []umls.ConceptCode
	seenMemberships := make(map[umls.ConceptCode]struct{})

	type selection struct {
		name     string
		priority int
		rank     int
	}
	selected := make(map[string]selection)

	for _, cand := range cands {
		codeID := cand.Term.SAB + ":" + cand.Term.Code
		if _, ok := seenCodes[codeID]; !ok {
			seenCodes[codeID] = struct{}{}
			codes = append(codes, umls.Code{CodeID: codeID, SAB: cand.Term.SAB, Name: cand.Term.Name})
		}
		pair := umls.ConceptCode{CUI: cand.CUI, CodeID: codeID}
		if _, ok := seenMemberships[pair]; !ok {
			seenMemberships[pair] = struct{}{}
			memberships = append(memberships, pair)
		}

		priority, listed := priorityIdx[cand.Term.SAB]
		if !listed {
			priority = unranked
		}
		rank := termRank(cand.Term)
		cur, ok := selected[cand.CUI]
		if !ok || priority < cur.priority || (priority == cur.priority && rank > cur.rank) {
			selected[cand.CUI] = selection{name: cand.Term.Name, priority: priority, rank: rank}
		}
	}

	for cui, sel := range selected {
		concepts[cui] = umls.Concept{CUI: cui, PreferredName: sel.name}
	}
	return concepts, codes, memberships
}
