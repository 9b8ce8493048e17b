package graph

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by engine tests and dry runs. It
// mirrors the Neo4j implementation's semantics exactly: additive labels,
// MATCH-only edge endpoints, provenance union on conflict, concept nodes
// exempt from the staleness sweep.
type MemoryStore struct {
	mu          sync.Mutex
	version     string
	runID       string
	concepts    map[string]*memConcept
	codes       map[string]*memCode
	memberships map[membershipKey]string
	edges       map[edgeKey]*memEdge
}

type memConcept struct {
	name    string
	labels  map[string]struct{}
	version string
}

type memCode struct {
	sab     string
	name    string
	version string
}

type membershipKey struct {
	cui    string
	codeID string
}

type edgeKey struct {
	src       string
	dst       string
	predicate string
	rela      string
}

type memEdge struct {
	sabs    []string
	version string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		concepts:    make(map[string]*memConcept),
		codes:       make(map[string]*memCode),
		memberships: make(map[membershipKey]string),
		edges:       make(map[edgeKey]*memEdge),
	}
}

func (s *MemoryStore) EnsureConstraints(ctx context.Context) error { return nil }

func (s *MemoryStore) Version(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *MemoryStore) SetVersion(ctx context.Context, version, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	s.runID = runID
	return nil
}

func (s *MemoryStore) DeleteConcepts(ctx context.Context, cuis []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cui := range cuis {
		if _, ok := s.concepts[cui]; !ok {
			continue
		}
		delete(s.concepts, cui)
		for k := range s.memberships {
			if k.cui == cui {
				delete(s.memberships, k)
			}
		}
		for k := range s.edges {
			if k.src == cui || k.dst == cui {
				delete(s.edges, k)
			}
		}
	}
	return nil
}

func (s *MemoryStore) MergeConcept(ctx context.Context, oldCUI, newCUI, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if oldCUI == newCUI {
		return false, nil
	}
	if _, ok := s.concepts[oldCUI]; !ok {
		return false, nil
	}
	if _, ok := s.concepts[newCUI]; !ok {
		return false, nil
	}

	var moved []membershipKey
	for k := range s.memberships {
		if k.cui == oldCUI {
			moved = append(moved, k)
		}
	}
	for _, k := range moved {
		delete(s.memberships, k)
		s.memberships[membershipKey{cui: newCUI, codeID: k.codeID}] = version
	}

	var stale []edgeKey
	for k := range s.edges {
		if k.src == oldCUI || k.dst == oldCUI {
			stale = append(stale, k)
		}
	}
	for _, k := range stale {
		e := s.edges[k]
		delete(s.edges, k)
		nk := k
		if nk.src == oldCUI {
			nk.src = newCUI
		}
		if nk.dst == oldCUI {
			nk.dst = newCUI
		}
		if existing, ok := s.edges[nk]; ok {
			existing.sabs = UnionSources(existing.sabs, e.sabs)
			existing.version = version
		} else {
			s.edges[nk] = &memEdge{sabs: append([]string(nil), e.sabs...), version: version}
		}
	}

	delete(s.concepts, oldCUI)
	return true, nil
}

func (s *MemoryStore) UpsertConcepts(ctx context.Context, recs []ConceptRecord, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		c, ok := s.concepts[r.CUI]
		if !ok {
			c = &memConcept{labels: make(map[string]struct{})}
			s.concepts[r.CUI] = c
		}
		c.name = r.PreferredName
		c.version = version
		for _, l := range r.Labels {
			c.labels[l] = struct{}{}
		}
	}
	return nil
}

func (s *MemoryStore) UpsertCodes(ctx context.Context, recs []CodeRecord, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.codes[r.CodeID] = &memCode{sab: r.SAB, name: r.Name, version: version}
	}
	return nil
}

func (s *MemoryStore) UpsertMemberships(ctx context.Context, recs []MembershipRecord, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if _, ok := s.concepts[r.CUI]; !ok {
			continue
		}
		if _, ok := s.codes[r.CodeID]; !ok {
			continue
		}
		s.memberships[membershipKey{cui: r.CUI, codeID: r.CodeID}] = version
	}
	return nil
}

func (s *MemoryStore) UpsertAssertions(ctx context.Context, recs []AssertionRecord, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if _, ok := s.concepts[r.SourceCUI]; !ok {
			continue
		}
		if _, ok := s.concepts[r.TargetCUI]; !ok {
			continue
		}
		k := edgeKey{src: r.SourceCUI, dst: r.TargetCUI, predicate: r.Predicate, rela: r.SourceRELA}
		if e, ok := s.edges[k]; ok {
			e.sabs = UnionSources(e.sabs, r.SABs)
			e.version = version
		} else {
			s.edges[k] = &memEdge{sabs: append([]string(nil), r.SABs...), version: version}
		}
	}
	return nil
}

func (s *MemoryStore) SweepStale(ctx context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.edges {
		if e.version != version {
			delete(s.edges, k)
		}
	}
	for k, v := range s.memberships {
		if v != version {
			delete(s.memberships, k)
		}
	}
	for id, c := range s.codes {
		if c.version != version {
			delete(s.codes, id)
			for k := range s.memberships {
				if k.codeID == id {
					delete(s.memberships, k)
				}
			}
		}
	}
	return nil
}

// Inspection helpers for tests and dry runs.

func (s *MemoryStore) HasConcept(cui string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.concepts[cui]
	return ok
}

func (s *MemoryStore) PreferredName(cui string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.concepts[cui]; ok {
		return c.name
	}
	return ""
}

func (s *MemoryStore) ConceptLabels(cui string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.concepts[cui]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.labels))
	for l := range c.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) ConceptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.concepts)
}

func (s *MemoryStore) HasCode(codeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[codeID]
	return ok
}

func (s *MemoryStore) CodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *MemoryStore) Memberships() []MembershipRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MembershipRecord, 0, len(s.memberships))
	for k := range s.memberships {
		out = append(out, MembershipRecord{CUI: k.cui, CodeID: k.codeID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CUI != out[j].CUI {
			return out[i].CUI < out[j].CUI
		}
		return out[i].CodeID < out[j].CodeID
	})
	return out
}

func (s *MemoryStore) Assertions() []AssertionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AssertionRecord, 0, len(s.edges))
	for k, e := range s.edges {
		out = append(out, AssertionRecord{
			SourceCUI:  k.src,
			TargetCUI:  k.dst,
			SourceRELA: k.rela,
			Predicate:  k.predicate,
			SABs:       append([]string(nil), e.sabs...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SourceCUI != b.SourceCUI {
			return a.SourceCUI < b.SourceCUI
		}
		if a.TargetCUI != b.TargetCUI {
			return a.TargetCUI < b.TargetCUI
		}
		return a.SourceRELA < b.SourceRELA
	})
	return out
}
