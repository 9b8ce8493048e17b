// Package graph defines the store-side capability surface the reconciliation
// engine requires: upsert-by-key, batched iterate-and-mutate, and
// merge-with-provenance-union-on-conflict. Any property-graph store that can
// provide these operations is substitutable behind Store.
package graph

import "context"

// ConceptRecord is an upsert row for a :Concept node. Labels carries the
// full label set ("Concept" plus Biolink categories); membership is a set,
// ordering is irrelevant.
type ConceptRecord struct {
	CUI           string
	PreferredName string
	Labels        []string
}

// CodeRecord is an upsert row for a :Code node, keyed by the composite
// "SAB:CODE" id.
type CodeRecord struct {
	CodeID string
	SAB    string
	Name   string
}

// MembershipRecord is an upsert row for a (:Concept)-[:HAS_CODE]->(:Code)
// edge, unique per pair.
type MembershipRecord struct {
	CUI    string
	CodeID string
}

// AssertionRecord is an upsert row for a typed concept-to-concept edge. The
// edge key is (SourceCUI, TargetCUI, SourceRELA); Predicate is the mapped
// relationship type and SABs the asserting-source provenance set.
type AssertionRecord struct {
	SourceCUI  string
	TargetCUI  string
	SourceRELA string
	Predicate  string
	SABs       []string
}

// MergePair is one (retired, surviving) concept pair from a merge change
// list.
type MergePair struct {
	OldCUI string
	NewCUI string
}

// Store is the graph-store capability interface driven by the reconciliation
// engine. Implementations batch internally with a bounded batch size and keep
// store-side parallelism off, so two mutations never race on a shared
// neighbor. Every operation is idempotent.
type Store interface {
	// EnsureConstraints creates the uniqueness constraints for concept,
	// code, and version-marker keys.
	EnsureConstraints(ctx context.Context) error

	// Version returns the committed version string, or "" when the marker
	// does not exist yet.
	Version(ctx context.Context) (string, error)

	// SetVersion commits the version marker. Called only after a sweep
	// succeeds; never creates intermediate observable states.
	SetVersion(ctx context.Context, version, runID string) error

	// DeleteConcepts detach-deletes the listed concepts. Missing keys are
	// no-ops.
	DeleteConcepts(ctx context.Context, cuis []string) error

	// MergeConcept migrates everything attached to oldCUI onto newCUI,
	// unioning provenance with any colliding edge, then removes oldCUI.
	// Returns false without mutating anything when either endpoint is
	// missing.
	MergeConcept(ctx context.Context, oldCUI, newCUI, version string) (bool, error)

	UpsertConcepts(ctx context.Context, recs []ConceptRecord, version string) error
	UpsertCodes(ctx context.Context, recs []CodeRecord, version string) error
	UpsertMemberships(ctx context.Context, recs []MembershipRecord, version string) error

	// UpsertAssertions upserts typed edges, unioning the asserted-by set on
	// conflict: the same logical assertion may exist in both the previous
	// graph and the new snapshot.
	UpsertAssertions(ctx context.Context, recs []AssertionRecord, version string) error

	// SweepStale deletes every relationship and every :Code node whose
	// version stamp differs from version. :Concept nodes are exempt; their
	// lifecycle is governed exclusively by deletion and merge change lists.
	SweepStale(ctx context.Context, version string) error
}
