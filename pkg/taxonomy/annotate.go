package taxonomy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/alignments"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/config"
)

// Location says where the taxon id of a structure is found.
type Location int

const (
	LocationNone  Location = 0 // not annotated
	LocationName  Location = 1 // last delimited element of the structure name
	LocationField Location = 2 // the taxid column, targets only
)

// ParseLocation converts a numeric location option.
func ParseLocation(v int) (Location, error) {
	switch l := Location(v); l {
	case LocationNone, LocationName, LocationField:
		return l, nil
	}
	return 0, fmt.Errorf("%w: must be 0, 1 or 2, got %d", ErrLocation, v)
}

// ValidateLocations checks a query/target location pair against the
// alignment columns.
func ValidateLocations(query, target Location, fields []string) error {
	if _, err := ParseLocation(int(query)); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if _, err := ParseLocation(int(target)); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if query == LocationField {
		return fmt.Errorf("%w: the %s column holds target taxa, not query taxa", ErrLocation, FieldTaxID)
	}
	if target == LocationField {
		for _, f := range fields {
			if f == FieldTaxID {
				return nil
			}
		}
		return fmt.Errorf("%w: target taxa read from %s but the alignments have no such column", ErrLocation, FieldTaxID)
	}
	return nil
}

// TaxonID returns the taxon id embedded in a structure name such as
// "AF-P12345-F1__9606.pdb".
func TaxonID(name, delimiter string) string {
	name = strings.TrimSuffix(name, ".pdb")
	if delimiter == "" {
		return name
	}
	parts := strings.Split(name, delimiter)
	return parts[len(parts)-1]
}

// Annotator adds lineage columns to alignments.
type Annotator struct {
	memo      *Memo
	levels    []string
	delimiter string
	progress  bool
	logger    zerolog.Logger
}

// NewAnnotator creates an annotator that resolves lineages through memo.
func NewAnnotator(cfg *config.Config, memo *Memo, logger zerolog.Logger) *Annotator {
	return &Annotator{
		memo:      memo,
		levels:    cfg.TaxonomyLevels(),
		delimiter: cfg.TaxonomyDelimiter(),
		progress:  cfg.EnableProgress(),
		logger:    logger.With().Str("component", "taxonomy").Logger(),
	}
}

// Levels returns the levels written for every annotated side.
func (a *Annotator) Levels() []string { return a.levels }

// Columns returns the lineage columns Annotate adds for the given locations.
func (a *Annotator) Columns(query, target Location) []string {
	var cols []string
	if query != LocationNone {
		cols = append(cols, prefixed("query", a.levels)...)
	}
	if target != LocationNone {
		cols = append(cols, prefixed("target", a.levels)...)
	}
	return cols
}

func prefixed(side string, levels []string) []string {
	out := make([]string, len(levels))
	for i, level := range levels {
		out[i] = side + "_" + level
	}
	return out
}

// Annotate sets query_<level> and target_<level> columns on every alignment
// of d for the sides whose location is not LocationNone.
func (a *Annotator) Annotate(ctx context.Context, d *alignments.Dataset, query, target Location) error {
	if err := ValidateLocations(query, target, d.Fields); err != nil {
		return err
	}

	d.AddFields(a.Columns(query, target)...)
	queryCols := prefixed("query", a.levels)
	targetCols := prefixed("target", a.levels)

	groups := d.Groups()
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, aln := range g.Alignments {
			if query != LocationNone {
				if err := a.annotate(ctx, aln, a.taxID(aln, aln.Query, query), queryCols); err != nil {
					return fmt.Errorf("failed to annotate query %s: %w", aln.Query, err)
				}
			}
			if target != LocationNone {
				if err := a.annotate(ctx, aln, a.taxID(aln, aln.Target, target), targetCols); err != nil {
					return fmt.Errorf("failed to annotate target %s: %w", aln.Target, err)
				}
			}
		}

		if a.progress && (i+1)%100 == 0 {
			a.logger.Info().
				Int("done", i+1).
				Int("total", len(groups)).
				Msg("Labeling progress")
		}
	}

	a.logger.Info().
		Int("queries", len(groups)).
		Int("alignments", d.Count()).
		Int("taxa", a.memo.Lookups()).
		Msg("Taxonomy annotation completed")
	return nil
}

func (a *Annotator) taxID(aln *alignments.Alignment, name string, loc Location) string {
	if loc == LocationField {
		v, _ := aln.Field(FieldTaxID)
		return v
	}
	return TaxonID(name, a.delimiter)
}

func (a *Annotator) annotate(ctx context.Context, aln *alignments.Alignment, taxID string, cols []string) error {
	names, err := a.memo.Canonical(ctx, taxID, a.levels)
	if err != nil {
		return err
	}
	for i, col := range cols {
		aln.SetExtra(col, names[i])
	}
	return nil
}
