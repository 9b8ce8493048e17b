// Package syncer drives the snapshot-diff reconciliation of the graph store
// against a new release: constraints, explicit deletions, merges with
// provenance union, additive load, staleness sweep, version commit.
package syncer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/umls-graph-syncer/internal/graph"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
	"github.com/yungbote/umls-graph-syncer/internal/snapshot"
)

// Phase is one state of the reconciliation state machine. Transitions are
// strictly sequential and each phase is individually idempotent, so a failed
// run can be retried from the start.
type Phase string

const (
	PhaseInit               Phase = "init"
	PhaseConstraintsEnsured Phase = "constraints_ensured"
	PhaseDeleted            Phase = "deleted"
	PhaseMerged             Phase = "merged"
	PhaseLoaded             Phase = "loaded"
	PhaseSwept              Phase = "swept"
	PhaseCommitted          Phase = "committed"
)

// PhaseError reports which phase failed and which was the last to complete.
// The version marker is only written in the final phase, so any PhaseError
// means the marker still holds its prior value and the run is safe to retry.
type PhaseError struct {
	Phase         Phase
	LastCompleted Phase
	Err           error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("syncer: phase %s failed (last completed: %s): %v", e.Phase, e.LastCompleted, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ChangeSet carries the explicit concept lifecycle lists for one release.
type ChangeSet struct {
	Deletions []string
	Merges    []graph.MergePair
}

// Engine applies one versioned snapshot plus its change set to a graph store.
type Engine struct {
	store graph.Store
	log   *logger.Logger
	runID string
}

func New(store graph.Store, log *logger.Logger) *Engine {
	runID := uuid.NewString()
	return &Engine{
		store: store,
		log:   log.With("component", "syncer", "run_id", runID),
		runID: runID,
	}
}

// RunID identifies this engine instance across logs and the version marker.
func (e *Engine) RunID() string { return e.runID }

// Sync converges the store onto the given snapshot and change set. On error
// the returned *PhaseError names the failing phase; the commit pointer is
// never advanced by a partial run.
func (e *Engine) Sync(ctx context.Context, rs *snapshot.RecordSet, changes ChangeSet, version string) error {
	last := PhaseInit
	fail := func(phase Phase, err error) error {
		e.log.Error("phase failed", "phase", string(phase), "last_completed", string(last), "error", err)
		return &PhaseError{Phase: phase, LastCompleted: last, Err: err}
	}
	advance := func(phase Phase) {
		last = phase
		e.log.Info("phase complete", "phase", string(phase))
	}

	e.log.Info("starting reconciliation", "version", version,
		"concepts", len(rs.Concepts), "codes", len(rs.Codes),
		"memberships", len(rs.Memberships), "assertions", len(rs.Assertions),
		"deletions", len(changes.Deletions), "merges", len(changes.Merges))

	if err := e.store.EnsureConstraints(ctx); err != nil {
		return fail(PhaseConstraintsEnsured, err)
	}
	advance(PhaseConstraintsEnsured)

	if err := e.store.DeleteConcepts(ctx, changes.Deletions); err != nil {
		return fail(PhaseDeleted, err)
	}
	advance(PhaseDeleted)

	if err := e.applyMerges(ctx, changes.Merges, version); err != nil {
		return fail(PhaseMerged, err)
	}
	advance(PhaseMerged)

	if err := e.load(ctx, rs, version); err != nil {
		return fail(PhaseLoaded, err)
	}
	advance(PhaseLoaded)

	if err := e.store.SweepStale(ctx, version); err != nil {
		return fail(PhaseSwept, err)
	}
	advance(PhaseSwept)

	if err := e.store.SetVersion(ctx, version, e.runID); err != nil {
		return fail(PhaseCommitted, err)
	}
	advance(PhaseCommitted)

	e.log.Info("reconciliation committed", "version", version)
	return nil
}

// applyMerges processes merge pairs in list order. The target of each pair is
// re-resolved through previously applied merges so chains like A→B then B→C
// land everything on C even when B has already been consumed.
func (e *Engine) applyMerges(ctx context.Context, merges []graph.MergePair, version string) error {
	forwarded := make(map[string]string, len(merges))
	for _, pair := range merges {
		target := resolveForward(forwarded, pair.NewCUI)
		applied, err := e.store.MergeConcept(ctx, pair.OldCUI, target, version)
		if err != nil {
			return err
		}
		if applied {
			forwarded[pair.OldCUI] = target
			e.log.Debug("merged concept", "old", pair.OldCUI, "new", target)
		} else {
			e.log.Debug("merge skipped, endpoint missing", "old", pair.OldCUI, "new", target)
		}
	}
	return nil
}

// resolveForward chases a CUI through already-applied merges, guarding
// against cycles in a malformed merge list.
func resolveForward(forwarded map[string]string, cui string) string {
	seen := map[string]struct{}{cui: {}}
	for {
		next, ok := forwarded[cui]
		if !ok {
			return cui
		}
		if _, looped := seen[next]; looped {
			return cui
		}
		seen[next] = struct{}{}
		cui = next
	}
}

// load applies the snapshot additively: nodes first, then the edges between
// them, each upsert stamped with the run's version token.
func (e *Engine) load(ctx context.Context, rs *snapshot.RecordSet, version string) error {
	if err := e.store.UpsertConcepts(ctx, rs.Concepts, version); err != nil {
		return fmt.Errorf("load concepts: %w", err)
	}
	if err := e.store.UpsertCodes(ctx, rs.Codes, version); err != nil {
		return fmt.Errorf("load codes: %w", err)
	}
	if err := e.store.UpsertMemberships(ctx, rs.Memberships, version); err != nil {
		return fmt.Errorf("load memberships: %w", err)
	}
	if err := e.store.UpsertAssertions(ctx, rs.Assertions, version); err != nil {
		return fmt.Errorf("load assertions: %w", err)
	}
	return nil
}
