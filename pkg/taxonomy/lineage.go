// Package taxonomy annotates alignments with taxonomic lineages. Lineages come
// from an injected Service; callers share one Memo per run so each taxon is
// looked up once.
package taxonomy

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrUnknownTaxon = errors.New("taxonomy: unknown taxon")
	ErrLocation     = errors.New("taxonomy: invalid taxid location")
)

// CanonicalPrefixes are prepended to taxon names of the matching level.
// Levels not listed get no prefix.
var CanonicalPrefixes = map[string]string{
	"superkingdom": "sk__",
	"kingdom":      "k__",
	"phylum":       "p__",
	"class":        "c__",
	"order":        "o__",
	"family":       "f__",
	"genus":        "g__",
	"species":      "s__",
}

// Rank is one named level of a lineage, e.g. {"genus", "Escherichia"}.
type Rank struct {
	Level string `json:"level"`
	Name  string `json:"name"`
}

// Lineage is ordered from the root down.
type Lineage []Rank

// Name returns the name at level.
func (l Lineage) Name(level string) (string, bool) {
	for _, r := range l {
		if r.Level == level {
			return r.Name, true
		}
	}
	return "", false
}

// Canonical returns one entry per level: the prefixed name with spaces
// replaced by underscores, or "" when the lineage has no such level.
func (l Lineage) Canonical(levels []string) []string {
	out := make([]string, len(levels))
	for i, level := range levels {
		name, ok := l.Name(level)
		if !ok || name == "" {
			continue
		}
		out[i] = CanonicalPrefixes[level] + strings.ReplaceAll(name, " ", "_")
	}
	return out
}

// Service resolves a taxon id to its lineage. Implementations return
// ErrUnknownTaxon for ids they do not know.
type Service interface {
	Lineage(ctx context.Context, taxID string) (Lineage, error)
}

// Memo caches lineages for the length of a run. It is safe for concurrent use.
type Memo struct {
	service Service

	mu      sync.RWMutex
	cache   map[string]Lineage
	lookups int
}

// NewMemo creates an empty memo over service.
func NewMemo(service Service) *Memo {
	return &Memo{
		service: service,
		cache:   make(map[string]Lineage),
	}
}

// Lineage returns the lineage of taxID. Unknown and empty ids resolve to an
// empty lineage and are cached like any other.
func (m *Memo) Lineage(ctx context.Context, taxID string) (Lineage, error) {
	m.mu.RLock()
	lineage, ok := m.cache[taxID]
	m.mu.RUnlock()
	if ok {
		return lineage, nil
	}

	if taxID != "" {
		var err error
		lineage, err = m.service.Lineage(ctx, taxID)
		if errors.Is(err, ErrUnknownTaxon) {
			lineage = nil
		} else if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.cache[taxID] = lineage
	m.lookups++
	m.mu.Unlock()
	return lineage, nil
}

// Canonical is Lineage followed by Lineage.Canonical.
func (m *Memo) Canonical(ctx context.Context, taxID string, levels []string) ([]string, error) {
	lineage, err := m.Lineage(ctx, taxID)
	if err != nil {
		return nil, err
	}
	return lineage.Canonical(levels), nil
}

// Lookups returns the number of distinct ids resolved so far.
func (m *Memo) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}
