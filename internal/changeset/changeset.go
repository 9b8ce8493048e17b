// Package changeset reads the explicit concept lifecycle files shipped with a
// release: DELETEDCUI.RRF (retired concepts) and MERGEDCUI.RRF (old|new merge
// pairs). These lists, not the staleness sweep, are the only way concepts
// leave the graph.
package changeset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/umls-graph-syncer/internal/graph"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

const (
	DeletedCUIFile = "DELETEDCUI.RRF"
	MergedCUIFile  = "MERGEDCUI.RRF"
)

// ReadDeletions returns the CUIs listed in a DELETEDCUI.RRF file. An absent
// file is an empty change list, not an error. Malformed rows are skipped with
// a warning.
func ReadDeletions(path string, log *logger.Logger) ([]string, error) {
	rows, err := readRows(path, log)
	if rows == nil || err != nil {
		return nil, err
	}
	var out []string
	for _, fields := range rows {
		cui := strings.TrimSpace(fields[0])
		if cui == "" {
			continue
		}
		out = append(out, cui)
	}
	return out, nil
}

// ReadMerges returns the (old, new) pairs listed in a MERGEDCUI.RRF file, in
// file order; order matters because merge chains re-resolve through earlier
// pairs. An absent file is an empty change list.
func ReadMerges(path string, log *logger.Logger) ([]graph.MergePair, error) {
	rows, err := readRows(path, log)
	if rows == nil || err != nil {
		return nil, err
	}
	var out []graph.MergePair
	for _, fields := range rows {
		if len(fields) < 2 {
			if log != nil {
				log.Warn("skipping malformed merge row", "fields", len(fields))
			}
			continue
		}
		oldCUI := strings.TrimSpace(fields[0])
		newCUI := strings.TrimSpace(fields[1])
		if oldCUI == "" || newCUI == "" {
			if log != nil {
				log.Warn("skipping merge row with empty cui")
			}
			continue
		}
		out = append(out, graph.MergePair{OldCUI: oldCUI, NewCUI: newCUI})
	}
	return out, nil
}

func readRows(path string, log *logger.Logger) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if log != nil {
				log.Warn("change list not found, treating as empty", "path", path)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("changeset: open %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "|"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("changeset: read %s: %w", path, err)
	}
	return rows, nil
}
