package taxonomy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/alignments"
)

var ErrUnlabelled = errors.New("taxonomy: alignments carry no cluster labels")

// TaxaCountsHeader is the column order written by WriteTaxaCounts.
var TaxaCountsHeader = []string{"cluster_ID", "top_query", "level", "superkingdom", "taxon", "count"}

// TaxaCount is the number of distinct taxa of a cluster sharing one name at
// one level.
type TaxaCount struct {
	ClusterID    string `json:"cluster_id"`
	TopQuery     string `json:"top_query"`
	Level        string `json:"level"`
	Superkingdom string `json:"superkingdom"`
	Taxon        string `json:"taxon"`
	Count        int    `json:"count"`
}

type labelledCluster struct {
	id       string
	topQuery string
	taxa     map[string]struct{}
}

// CountByLevel counts, for each cluster labelled on d, the distinct taxa of
// its queries and targets at every configured level. Taxa without a name at a
// level are not counted there.
func (a *Annotator) CountByLevel(ctx context.Context, d *alignments.Dataset) ([]TaxaCount, error) {
	byID := make(map[string]*labelledCluster)
	var order []*labelledCluster

	for _, g := range d.Groups() {
		for _, aln := range g.Alignments {
			id, ok := aln.Field(alignments.FieldClusterID)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no %s", ErrUnlabelled, aln.Query, alignments.FieldClusterID)
			}
			c, ok := byID[id]
			if !ok {
				top, _ := aln.Field(alignments.FieldTopQuery)
				c = &labelledCluster{id: id, topQuery: top, taxa: make(map[string]struct{})}
				byID[id] = c
				order = append(order, c)
			}
			c.taxa[TaxonID(aln.Query, a.delimiter)] = struct{}{}
			c.taxa[TaxonID(aln.Target, a.delimiter)] = struct{}{}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return clusterIDLess(order[i].id, order[j].id)
	})

	var counts []TaxaCount
	for _, c := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clusterCounts, err := a.countCluster(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to count taxa of cluster %s: %w", c.id, err)
		}
		counts = append(counts, clusterCounts...)
	}

	a.logger.Info().
		Int("clusters", len(order)).
		Int("rows", len(counts)).
		Msg("Taxa counts completed")
	return counts, nil
}

func (a *Annotator) countCluster(ctx context.Context, c *labelledCluster) ([]TaxaCount, error) {
	type key struct{ superkingdom, taxon string }
	tallies := make([]map[key]int, len(a.levels))
	for i := range tallies {
		tallies[i] = make(map[key]int)
	}

	for taxID := range c.taxa {
		lineage, err := a.memo.Lineage(ctx, taxID)
		if err != nil {
			return nil, err
		}
		sk := lineage.Canonical([]string{"superkingdom"})[0]
		for i, name := range lineage.Canonical(a.levels) {
			if name != "" {
				tallies[i][key{sk, name}]++
			}
		}
	}

	var out []TaxaCount
	for i, level := range a.levels {
		start := len(out)
		for k, n := range tallies[i] {
			out = append(out, TaxaCount{
				ClusterID:    c.id,
				TopQuery:     c.topQuery,
				Level:        level,
				Superkingdom: k.superkingdom,
				Taxon:        k.taxon,
				Count:        n,
			})
		}
		rows := out[start:]
		sort.Slice(rows, func(x, y int) bool {
			if rows[x].Count != rows[y].Count {
				return rows[x].Count > rows[y].Count
			}
			if rows[x].Superkingdom != rows[y].Superkingdom {
				return rows[x].Superkingdom < rows[y].Superkingdom
			}
			return rows[x].Taxon < rows[y].Taxon
		})
	}
	return out, nil
}

// clusterIDLess orders numeric ids numerically and anything else after them
// by text.
func clusterIDLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return x < y
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// WriteTaxaCounts writes counts as a tab separated table with a header.
func WriteTaxaCounts(w io.Writer, counts []TaxaCount) error {
	bw := bufio.NewWriter(w)
	for i, col := range TaxaCountsHeader {
		if i > 0 {
			bw.WriteByte('\t')
		}
		bw.WriteString(col)
	}
	bw.WriteByte('\n')

	for _, c := range counts {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			c.ClusterID, c.TopQuery, c.Level, c.Superkingdom, c.Taxon, c.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTaxaCountsFile writes counts to path, creating parent directories.
func WriteTaxaCountsFile(path string, counts []TaxaCount) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteTaxaCounts(file, counts); err != nil {
		return fmt.Errorf("failed to write taxa counts: %w", err)
	}
	return file.Close()
}
