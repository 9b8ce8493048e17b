package rrf

import (
	"bytes"
	"strings"
)

// MRCONSO column indices.
// https://www.ncbi.nlm.nih.gov/books/NBK9685/
const (
	consoCUI = iota
	consoLAT
	consoTS
	consoLUI
	consoSTT
	consoSUI
	consoISPREF
	consoAUI
	consoSAUI
	consoSCUI
	consoSDUI
	consoSAB
	consoTTY
	consoCODE
	consoSTR
	consoSRL
	consoSUPPRESS
	consoCVF
	consoFieldCount
)

// RRF rows end with a trailing delimiter, so a well-formed split yields one
// extra empty field.
const consoSplitWidth = consoFieldCount + 1

// term is the per-row subset of MRCONSO needed by the reduction phase.
type term struct {
	SAB    string
	Name   string
	Code   string
	TS     string
	STT    string
	ISPREF string
	TTY    string
}

// conceptCandidate is one accepted MRCONSO row keyed by its CUI.
type conceptCandidate struct {
	CUI  string
	Term term
}

// rowFilter is the precomputed acceptance predicate for MRCONSO rows:
// language match, source inclusion, suppression exclusion.
type rowFilter struct {
	language string
	sabs     map[string]struct{}
	suppress map[string]struct{}
}

func newRowFilter(language string, sabFilter, suppressFlags []string) rowFilter {
	f := rowFilter{
		language: language,
		sabs:     make(map[string]struct{}, len(sabFilter)),
		suppress: make(map[string]struct{}, len(suppressFlags)),
	}
	for _, s := range sabFilter {
		f.sabs[s] = struct{}{}
	}
	for _, s := range suppressFlags {
		f.suppress[s] = struct{}{}
	}
	return f
}

// filterConceptChunk applies row-level filtering to one MRCONSO chunk.
// Malformed rows are skipped, never fatal. The result is immutable once
// returned; all grouping happens later in the aggregator.
func filterConceptChunk(data []byte, filter rowFilter) []conceptCandidate {
	var out []conceptCandidate
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		row := strings.TrimSuffix(string(line), "\r")
		if row == "" {
			continue
		}
		fields := strings.Split(row, "|")
		if len(fields) != consoSplitWidth {
			continue
		}
		if _, excluded := filter.suppress[fields[consoSUPPRESS]]; excluded {
			continue
		}
		if _, ok := filter.sabs[fields[consoSAB]]; !ok {
			continue
		}
		if fields[consoLAT] != filter.language {
			continue
		}
		out = append(out, conceptCandidate{
			CUI: fields[consoCUI],
			Term: term{
				SAB:    fields[consoSAB],
				Name:   fields[consoSTR],
				Code:   fields[consoCODE],
				TS:     fields[consoTS],
				STT:    fields[consoSTT],
				ISPREF: fields[consoISPREF],
				TTY:    fields[consoTTY],
			},
		})
	}
	return out
}
