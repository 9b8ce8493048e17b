package rrf

import (
	"bytes"
	"strings"

	"github.com/yungbote/umls-graph-syncer/internal/umls"
)

// MRREL column indices.
const (
	relCUI1 = iota
	relAUI1
	relSTYPE1
	relREL
	relCUI2
	relAUI2
	relSTYPE2
	relRELA
	relRUI
	relSRUI
	relSAB
	relSL
	relRG
	relDIR
	relSUPPRESS
	relCVF
	relFieldCount
)

const relSplitWidth = relFieldCount + 1

// filterRelationshipChunk extracts relationship assertions from one MRREL
// chunk. Acceptance is by SAB inclusion only; the relationship label prefers
// RELA and falls back to the generic REL when RELA is empty. That fallback is
// mandatory: many valid assertions carry only REL.
func filterRelationshipChunk(data []byte, sabs map[string]struct{}) []umls.Assertion {
	var out []umls.Assertion
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		row := strings.TrimSuffix(string(line), "\r")
		if row == "" {
			continue
		}
		fields := strings.Split(row, "|")
		if len(fields) != relSplitWidth {
			continue
		}
		if _, ok := sabs[fields[relSAB]]; !ok {
			continue
		}
		rela := fields[relRELA]
		if rela == "" {
			rela = fields[relREL]
		}
		out = append(out, umls.Assertion{
			SourceCUI:  fields[relCUI1],
			TargetCUI:  fields[relCUI2],
			SourceRELA: rela,
			SAB:        fields[relSAB],
		})
	}
	return out
}
