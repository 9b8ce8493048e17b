package rrf

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/umls-graph-syncer/internal/config"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
	"github.com/yungbote/umls-graph-syncer/internal/umls"
)

const (
	mrconsoFile = "MRCONSO.RRF"
	mrrelFile   = "MRREL.RRF"
	mrstyFile   = "MRSTY.RRF"

	// More chunks than workers keeps the pool busy when chunk runtimes vary.
	chunksPerWorker = 4
)

// Parser extracts a versioned snapshot from the RRF files of one release.
//
// Row-level filtering runs chunk-parallel because it is stateless; the CUI
// grouping and preferred-name reduction run single-threaded after all chunks
// complete. A concept's rows may span chunk boundaries, so reduction can never
// be chunk-local.
type Parser struct {
	metaDir string
	cfg     config.Config
	log     *logger.Logger
}

func NewParser(metaDir string, cfg config.Config, log *logger.Logger) *Parser {
	return &Parser{metaDir: metaDir, cfg: cfg, log: log.With("component", "rrf_parser")}
}

// ParseAll parses MRSTY, MRCONSO, and MRREL and returns the reduced snapshot.
// A missing input file or a failed chunk fails the whole extraction; a
// partial snapshot is never returned.
func (p *Parser) ParseAll(ctx context.Context) (*umls.Snapshot, error) {
	styMap, err := parseSemanticTypes(filepath.Join(p.metaDir, mrstyFile))
	if err != nil {
		return nil, err
	}
	p.log.Info("parsed semantic types", "cuis", len(styMap))

	filter := newRowFilter(p.cfg.Language, p.cfg.SABFilter, p.cfg.SuppressFlags)
	candidates, err := collectChunks(ctx, filepath.Join(p.metaDir, mrconsoFile), p.cfg.MaxParallelWorkers,
		func(data []byte) []conceptCandidate {
			return filterConceptChunk(data, filter)
		})
	if err != nil {
		return nil, fmt.Errorf("rrf: parse %s: %w", mrconsoFile, err)
	}
	p.log.Info("filtered concept rows", "rows", len(candidates))

	assertions, err := collectChunks(ctx, filepath.Join(p.metaDir, mrrelFile), p.cfg.MaxParallelWorkers,
		func(data []byte) []umls.Assertion {
			return filterRelationshipChunk(data, filter.sabs)
		})
	if err != nil {
		return nil, fmt.Errorf("rrf: parse %s: %w", mrrelFile, err)
	}
	p.log.Info("filtered relationship rows", "rows", len(assertions))

	concepts, codes, memberships := reduceConcepts(candidates, p.cfg.SABPriority)
	p.log.Info("reduced concepts", "concepts", len(concepts), "codes", len(codes), "memberships", len(memberships))

	// Referential-integrity filter: keep only assertions whose endpoints both
	// survived entity resolution. Dropped edges are not an error.
	kept := assertions[:0]
	for _, a := range assertions {
		if _, ok := concepts[a.SourceCUI]; !ok {
			continue
		}
		if _, ok := concepts[a.TargetCUI]; !ok {
			continue
		}
		kept = append(kept, a)
	}
	p.log.Info("cross-filtered relationships", "kept", len(kept), "dropped", len(assertions)-len(kept))

	return &umls.Snapshot{
		Concepts:      concepts,
		Codes:         codes,
		ConceptCodes:  memberships,
		Assertions:    kept,
		SemanticTypes: styMap,
	}, nil
}

// collectChunks fans the file's chunks out over a bounded worker pool.
// Workers are stateless and return immutable batches; the join happens here,
// flattening in chunk order so downstream reduction sees a deterministic row
// order. Cancellation aborts cleanly between chunks.
func collectChunks[T any](ctx context.Context, path string, workers int, fn func(data []byte) []T) ([]T, error) {
	chunks, err := PlanChunks(path, workers*chunksPerWorker)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([][]T, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := readChunk(path, c)
			if err != nil {
				return fmt.Errorf("chunk %d (offset %d): %w", i, c.Offset, err)
			}
			results[i] = fn(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]T, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
