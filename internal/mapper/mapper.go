// Package mapper resolves free-text device-problem narratives into IMDRF
// codes: exact normalized matching against the Annex first, then a staged
// Annex-controlled selection fallback, with a durable write-through cache
// in front of both.
package mapper

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/annex"
)

// notAvailable is the MAUDE placeholder narrative that never maps to a code.
const notAvailable = "Appropriate Term/Code Not Available"

// Candidate list bounds for staged selection.
const (
	level1Candidates = 100
	childCandidates  = 50
)

// Stats counts resolution outcomes for one mapper lifetime.
type Stats struct {
	CacheHits     int `json:"cache_hits"`
	Deterministic int `json:"deterministic"`
	Assisted      int `json:"assisted"`
	Unresolved    int `json:"unresolved"`
}

// Mapper resolves device-problem values to IMDRF codes. A nil selector
// disables the assisted fallback (deterministic matching only).
type Mapper struct {
	annex    *annex.Annex
	cache    Cache
	selector Selector
	stats    Stats
}

// New builds a Mapper over a loaded Annex and cache.
func New(a *annex.Annex, cache Cache, selector Selector) *Mapper {
	return &Mapper{annex: a, cache: cache, selector: selector}
}

// Stats returns outcome counters accumulated so far.
func (m *Mapper) Stats() Stats {
	return m.stats
}

// MapDeviceProblem resolves one raw Device Problem value to a single IMDRF
// code. The value may hold several semicolon-separated fragments; each is
// resolved independently and the deepest resulting code wins.
func (m *Mapper) MapDeviceProblem(ctx context.Context, raw string) string {
	if annex.IsBlank(raw) {
		return ""
	}
	if annex.Normalize(raw) == annex.Normalize(notAvailable) {
		return ""
	}

	var codes []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if annex.IsBlank(part) {
			continue
		}
		if code := m.ResolveFragment(ctx, part); code != "" {
			codes = append(codes, code)
		}
	}

	return reduceCodes(codes)
}

// ResolveFragment resolves a single fragment. The cache answers first,
// including cached empty results; a miss costs exactly one resolution
// attempt (exact match, then assisted selection) whose outcome is cached
// for every future process sharing the store.
func (m *Mapper) ResolveFragment(ctx context.Context, fragment string) string {
	if annex.IsBlank(fragment) {
		return ""
	}
	norm := annex.Normalize(fragment)
	if norm == "" || norm == annex.Normalize(notAvailable) {
		return ""
	}

	if code, ok := m.cache.Lookup(norm); ok {
		m.stats.CacheHits++
		return code
	}

	code := m.annex.ExactMatch(norm)
	switch {
	case code != "":
		m.stats.Deterministic++
	case m.selector != nil:
		code = m.assisted(ctx, fragment)
		if code != "" {
			m.stats.Assisted++
		}
	}
	if code == "" {
		m.stats.Unresolved++
	}

	m.cache.Put(norm, code)
	return code
}

// assisted walks the hierarchy one level at a time, constraining each
// selection to the children of the previous pick. The deepest stage that
// resolves wins; a level-1 failure means no code at all.
func (m *Mapper) assisted(ctx context.Context, fragment string) string {
	l1Term, l1Code, ok := m.selectTerm(ctx, fragment, head(m.annex.Level1Terms, level1Candidates), "", m.annex.Level1Map)
	if !ok {
		return ""
	}

	l2Term, l2Code, ok := m.selectTerm(ctx, fragment, head(m.annex.Level2Children[l1Term], childCandidates), l1Term, m.annex.Level2Map)
	if !ok {
		return l1Code
	}

	_, l3Code, ok := m.selectTerm(ctx, fragment, head(m.annex.Level3Children[l2Term], childCandidates), l2Term, m.annex.Level3Map)
	if !ok {
		return l2Code
	}

	return l3Code
}

// selectTerm runs one constrained selection stage and validates the answer
// against the level map. Every failure mode (empty candidates, transport
// error, NO_MATCH, fabricated term) reads as "no selection at this level".
func (m *Mapper) selectTerm(ctx context.Context, fragment string, candidates []string, parent string, levelMap map[string]string) (string, string, bool) {
	if len(candidates) == 0 {
		return "", "", false
	}

	choice, err := m.selector.Select(ctx, fragment, candidates, parent)
	if err != nil {
		zap.L().Warn("mapper: assisted selection failed",
			zap.String("fragment", fragment),
			zap.String("parent", parent),
			zap.Error(err),
		)
		return "", "", false
	}
	if choice == NoMatch {
		return "", "", false
	}

	norm := annex.Normalize(choice)
	code, found := levelMap[norm]
	if !found {
		zap.L().Warn("mapper: selection not in candidate vocabulary",
			zap.String("fragment", fragment),
			zap.String("selected", choice),
		)
		return "", "", false
	}

	return norm, code, true
}

// reduceCodes picks the final code for a record: longest (most specific
// level) wins, ties broken by lexicographically smallest value. Pure
// function of the code set, independent of resolution order.
func reduceCodes(codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0]
}

func head(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
