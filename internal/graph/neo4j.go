package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
	"github.com/yungbote/umls-graph-syncer/internal/platform/neo4jdb"
)

// Neo4jStore implements Store against Neo4j 5.x using plain Cypher. All bulk
// work goes through UNWIND batches of at most batchSize rows, issued
// sequentially so no two batches race on a shared node.
type Neo4jStore struct {
	client    *neo4jdb.Client
	log       *logger.Logger
	batchSize int
}

func NewNeo4jStore(client *neo4jdb.Client, log *logger.Logger, batchSize int) *Neo4jStore {
	if batchSize < 1 {
		batchSize = 10000
	}
	return &Neo4jStore{
		client:    client,
		log:       log.With("component", "neo4j_store"),
		batchSize: batchSize,
	}
}

func (s *Neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

// escapeName backtick-quotes a label or relationship-type name for safe
// interpolation; type names cannot be passed as query parameters.
func escapeName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (s *Neo4jStore) run(ctx context.Context, sess neo4j.SessionWithContext, query string, params map[string]any) error {
	res, err := sess.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT concept_cui_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.cui IS UNIQUE`,
		`CREATE CONSTRAINT code_id_unique IF NOT EXISTS FOR (c:Code) REQUIRE c.code_id IS UNIQUE`,
		`CREATE CONSTRAINT umls_meta_unique IF NOT EXISTS FOR (m:UMLS_Meta) REQUIRE m.id IS UNIQUE`,
	}
	for _, q := range constraints {
		if err := s.run(ctx, sess, q, nil); err != nil {
			return fmt.Errorf("graph: ensure constraints: %w", err)
		}
	}
	s.log.Info("constraints ensured")
	return nil
}

func (s *Neo4jStore) Version(ctx context.Context) (string, error) {
	sess := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, `MATCH (m:UMLS_Meta {id: 'singleton'}) RETURN m.version AS version`, nil)
	if err != nil {
		return "", fmt.Errorf("graph: read version: %w", err)
	}
	// Collect instead of Single: zero rows means the marker does not exist
	// yet, which must not be conflated with a failed read.
	records, err := res.Collect(ctx)
	if err != nil {
		return "", fmt.Errorf("graph: read version: %w", err)
	}
	return versionFromRecords(records), nil
}

// versionFromRecords extracts the committed version from a marker query
// result; no rows means the database was never initialized.
func versionFromRecords(records []*neo4j.Record) string {
	if len(records) == 0 {
		return ""
	}
	version, _ := records[0].Get("version")
	str, _ := version.(string)
	return str
}

func (s *Neo4jStore) SetVersion(ctx context.Context, version, runID string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	err := s.run(ctx, sess, `
MERGE (m:UMLS_Meta {id: 'singleton'})
SET m.version = $version,
    m.last_run_id = $run_id,
    m.committed_at = $committed_at
`, map[string]any{
		"version":      version,
		"run_id":       runID,
		"committed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("graph: set version: %w", err)
	}
	s.log.Info("version marker committed", "version", version, "run_id", runID)
	return nil
}

func (s *Neo4jStore) DeleteConcepts(ctx context.Context, cuis []string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	for start := 0; start < len(cuis); start += s.batchSize {
		end := min(start+s.batchSize, len(cuis))
		err := s.run(ctx, sess, `
UNWIND $cuis AS cui
MATCH (c:Concept {cui: cui})
DETACH DELETE c
`, map[string]any{"cuis": cuis[start:end]})
		if err != nil {
			return fmt.Errorf("graph: delete concepts: %w", err)
		}
	}
	return nil
}

// incidentEdge is one non-HAS_CODE edge read off a concept being merged.
type incidentEdge struct {
	relType  string
	rela     string
	sabs     []string
	otherCUI string
}

func (s *Neo4jStore) MergeConcept(ctx context.Context, oldCUI, newCUI, version string) (bool, error) {
	if oldCUI == newCUI {
		return false, nil
	}
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	applied, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
OPTIONAL MATCH (o:Concept {cui: $old})
OPTIONAL MATCH (n:Concept {cui: $new})
RETURN o IS NOT NULL AS old_exists, n IS NOT NULL AS new_exists
`, map[string]any{"old": oldCUI, "new": newCUI})
		if err != nil {
			return false, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		oldExists, _ := rec.Get("old_exists")
		newExists, _ := rec.Get("new_exists")
		// A missing old is a retired concept we never held; a missing new
		// must not be created as a partial target. Both are no-ops.
		if oldExists != true || newExists != true {
			return false, nil
		}

		if err := runConsume(ctx, tx, `
MATCH (o:Concept {cui: $old})-[r:HAS_CODE]->(c:Code)
MATCH (n:Concept {cui: $new})
MERGE (n)-[nr:HAS_CODE]->(c)
SET nr.last_seen_version = $version
`, map[string]any{"old": oldCUI, "new": newCUI, "version": version}); err != nil {
			return false, err
		}

		outgoing, err := readIncidentEdges(ctx, tx, `
MATCH (o:Concept {cui: $old})-[r]->(t:Concept)
WHERE type(r) <> 'HAS_CODE'
RETURN type(r) AS rel_type, coalesce(r.source_rela, '') AS source_rela,
       coalesce(r.asserted_by_sabs, []) AS sabs, t.cui AS other_cui
`, oldCUI)
		if err != nil {
			return false, err
		}
		incoming, err := readIncidentEdges(ctx, tx, `
MATCH (f:Concept)-[r]->(o:Concept {cui: $old})
WHERE type(r) <> 'HAS_CODE'
RETURN type(r) AS rel_type, coalesce(r.source_rela, '') AS source_rela,
       coalesce(r.asserted_by_sabs, []) AS sabs, f.cui AS other_cui
`, oldCUI)
		if err != nil {
			return false, err
		}

		if err := s.repointEdges(ctx, tx, outgoing, oldCUI, newCUI, version, true); err != nil {
			return false, err
		}
		if err := s.repointEdges(ctx, tx, incoming, oldCUI, newCUI, version, false); err != nil {
			return false, err
		}

		if err := runConsume(ctx, tx, `
MATCH (o:Concept {cui: $old})
DETACH DELETE o
`, map[string]any{"old": oldCUI}); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("graph: merge %s into %s: %w", oldCUI, newCUI, err)
	}
	return applied == true, nil
}

// repointEdges recreates the given edges on newCUI, unioning provenance with
// any edge of the same type and source_rela already there. Self-loops on the
// merged concept re-point both endpoints.
func (s *Neo4jStore) repointEdges(ctx context.Context, tx neo4j.ManagedTransaction, edges []incidentEdge, oldCUI, newCUI, version string, outgoing bool) error {
	byType := make(map[string][]map[string]any)
	for _, e := range edges {
		other := e.otherCUI
		if other == oldCUI {
			other = newCUI
		}
		byType[e.relType] = append(byType[e.relType], map[string]any{
			"source_rela": e.rela,
			"sabs":        e.sabs,
			"other_cui":   other,
		})
	}

	for relType, rows := range byType {
		var pattern string
		if outgoing {
			pattern = fmt.Sprintf(`MERGE (n)-[e:%s {source_rela: row.source_rela}]->(t)`, escapeName(relType))
		} else {
			pattern = fmt.Sprintf(`MERGE (t)-[e:%s {source_rela: row.source_rela}]->(n)`, escapeName(relType))
		}
		query := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (n:Concept {cui: $new})
MATCH (t:Concept {cui: row.other_cui})
%s
SET e.last_seen_version = $version,
    e.asserted_by_sabs = coalesce(e.asserted_by_sabs, []) +
        [x IN row.sabs WHERE NOT x IN coalesce(e.asserted_by_sabs, [])]
`, pattern)
		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))
			if err := runConsume(ctx, tx, query, map[string]any{
				"rows":    rows[start:end],
				"new":     newCUI,
				"version": version,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertConcepts(ctx context.Context, recs []ConceptRecord, version string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	// Labels cannot be parameterized, so rows are grouped by label-set
	// signature and the labels interpolated per group.
	groups := make(map[string][]map[string]any)
	groupLabels := make(map[string][]string)
	for _, r := range recs {
		sig := strings.Join(r.Labels, ";")
		groups[sig] = append(groups[sig], map[string]any{
			"cui":            r.CUI,
			"preferred_name": r.PreferredName,
		})
		groupLabels[sig] = r.Labels
	}

	for sig, rows := range groups {
		setLabels := ""
		var extra []string
		for _, l := range groupLabels[sig] {
			if l != "Concept" {
				extra = append(extra, escapeName(l))
			}
		}
		if len(extra) > 0 {
			setLabels = "SET c:" + strings.Join(extra, ":")
		}
		query := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (c:Concept {cui: row.cui})
SET c.preferred_name = row.preferred_name,
    c.last_seen_version = $version
%s
`, setLabels)
		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))
			if err := s.run(ctx, sess, query, map[string]any{
				"rows":    rows[start:end],
				"version": version,
			}); err != nil {
				return fmt.Errorf("graph: upsert concepts: %w", err)
			}
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertCodes(ctx context.Context, recs []CodeRecord, version string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	rows := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, map[string]any{"code_id": r.CodeID, "sab": r.SAB, "name": r.Name})
	}
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		err := s.run(ctx, sess, `
UNWIND $rows AS row
MERGE (c:Code {code_id: row.code_id})
SET c.sab = row.sab,
    c.name = row.name,
    c.last_seen_version = $version
`, map[string]any{"rows": rows[start:end], "version": version})
		if err != nil {
			return fmt.Errorf("graph: upsert codes: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertMemberships(ctx context.Context, recs []MembershipRecord, version string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	rows := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, map[string]any{"cui": r.CUI, "code_id": r.CodeID})
	}
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		err := s.run(ctx, sess, `
UNWIND $rows AS row
MATCH (a:Concept {cui: row.cui})
MATCH (b:Code {code_id: row.code_id})
MERGE (a)-[r:HAS_CODE]->(b)
SET r.last_seen_version = $version
`, map[string]any{"rows": rows[start:end], "version": version})
		if err != nil {
			return fmt.Errorf("graph: upsert memberships: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertAssertions(ctx context.Context, recs []AssertionRecord, version string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	byType := make(map[string][]map[string]any)
	for _, r := range recs {
		byType[r.Predicate] = append(byType[r.Predicate], map[string]any{
			"source_cui":  r.SourceCUI,
			"target_cui":  r.TargetCUI,
			"source_rela": r.SourceRELA,
			"sabs":        r.SABs,
		})
	}

	for predicate, rows := range byType {
		query := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (a:Concept {cui: row.source_cui})
MATCH (b:Concept {cui: row.target_cui})
MERGE (a)-[r:%s {source_rela: row.source_rela}]->(b)
SET r.last_seen_version = $version,
    r.asserted_by_sabs = coalesce(r.asserted_by_sabs, []) +
        [x IN row.sabs WHERE NOT x IN coalesce(r.asserted_by_sabs, [])]
`, escapeName(predicate))
		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))
			if err := s.run(ctx, sess, query, map[string]any{
				"rows":    rows[start:end],
				"version": version,
			}); err != nil {
				return fmt.Errorf("graph: upsert assertions (%s): %w", predicate, err)
			}
		}
	}
	return nil
}

func (s *Neo4jStore) SweepStale(ctx context.Context, version string) error {
	sess := s.writeSession(ctx)
	defer sess.Close(ctx)

	// Relationships of any type not re-stamped by this run go first, then
	// stale Code nodes. Concept nodes are exempt: external systems hold
	// long-lived CUI references, so concept lifecycle is driven only by the
	// explicit deletion and merge lists.
	deletedRels, err := s.sweepLoop(ctx, sess, `
MATCH ()-[r]->()
WHERE r.last_seen_version IS NULL OR r.last_seen_version <> $version
WITH r LIMIT $batch
DELETE r
RETURN count(*) AS deleted
`, version)
	if err != nil {
		return fmt.Errorf("graph: sweep stale relationships: %w", err)
	}

	deletedCodes, err := s.sweepLoop(ctx, sess, `
MATCH (c:Code)
WHERE c.last_seen_version IS NULL OR c.last_seen_version <> $version
WITH c LIMIT $batch
DETACH DELETE c
RETURN count(*) AS deleted
`, version)
	if err != nil {
		return fmt.Errorf("graph: sweep stale codes: %w", err)
	}

	s.log.Info("staleness sweep complete", "stale_relationships", deletedRels, "stale_codes", deletedCodes)
	return nil
}

// sweepLoop repeats a LIMIT-bounded delete until it reports zero deletions,
// keeping each transaction's lock and memory footprint bounded.
func (s *Neo4jStore) sweepLoop(ctx context.Context, sess neo4j.SessionWithContext, query, version string) (int64, error) {
	var total int64
	for {
		res, err := sess.Run(ctx, query, map[string]any{
			"version": version,
			"batch":   s.batchSize,
		})
		if err != nil {
			return total, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return total, err
		}
		deletedVal, _ := rec.Get("deleted")
		deleted, _ := deletedVal.(int64)
		total += deleted
		if deleted == 0 {
			return total, nil
		}
	}
}

func readIncidentEdges(ctx context.Context, tx neo4j.ManagedTransaction, query, oldCUI string) ([]incidentEdge, error) {
	res, err := tx.Run(ctx, query, map[string]any{"old": oldCUI})
	if err != nil {
		return nil, err
	}
	var out []incidentEdge
	for res.Next(ctx) {
		rec := res.Record()
		relType, _ := rec.Get("rel_type")
		rela, _ := rec.Get("source_rela")
		sabsVal, _ := rec.Get("sabs")
		otherCUI, _ := rec.Get("other_cui")

		var sabs []string
		if list, ok := sabsVal.([]any); ok {
			for _, v := range list {
				if str, ok := v.(string); ok {
					sabs = append(sabs, str)
				}
			}
		}
		out = append(out, incidentEdge{
			relType:  relType.(string),
			rela:     rela.(string),
			sabs:     sabs,
			otherCUI: otherCUI.(string),
		})
	}
	return out, res.Err()
}

func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
