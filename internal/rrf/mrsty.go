package rrf

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/umls-graph-syncer/internal/umls"
)

// MRSTY column indices.
const (
	styCUI = iota
	styTUI
	stySTN
	stySTY
	styATUI
	styCVF
	styFieldCount
)

// parseSemanticTypes reads MRSTY.RRF sequentially into a CUI keyed map. The
// file is small relative to MRCONSO/MRREL, so no chunking is needed.
func parseSemanticTypes(path string) (map[string][]umls.SemanticType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rrf: parse semantic types: %w", err)
	}
	defer f.Close()

	out := make(map[string][]umls.SemanticType)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		row := strings.TrimSuffix(scanner.Text(), "\r")
		if row == "" {
			continue
		}
		fields := strings.Split(row, "|")
		if len(fields) < stySTY+1 {
			continue
		}
		cui := fields[styCUI]
		out[cui] = append(out[cui], umls.SemanticType{
			CUI: cui,
			TUI: fields[styTUI],
			STY: fields[stySTY],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rrf: parse semantic types: %w", err)
	}
	return out, nil
}
