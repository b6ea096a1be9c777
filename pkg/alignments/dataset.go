package alignments

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/clusters"
)

// Dataset is a set of alignments grouped by query.
type Dataset struct {
	Fields []string // column order used when writing

	groups map[string]*Group
	order  []string // queries in first-seen order
}

// NewDataset creates an empty dataset with the given output columns.
func NewDataset(fields []string) *Dataset {
	return &Dataset{
		Fields: append([]string(nil), fields...),
		groups: make(map[string]*Group),
	}
}

// ParseFile reads an alignment file. See Parse.
func ParseFile(path string, fields []string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open alignment file: %w", err)
	}
	defer file.Close()

	d, err := Parse(file, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return d, nil
}

// Parse reads a tab separated alignment file. With no fields the first line
// must be a header starting with "query". Later header lines are skipped and
// self alignments are dropped.
func Parse(r io.Reader, fields []string) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNum := 0
	if len(fields) == 0 {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: no fields given and no header", ErrMissingField)
		}
		lineNum++
		header := scanner.Text()
		if !strings.HasPrefix(header, FieldQuery) {
			return nil, fmt.Errorf("%w: no fields given and first line is %q", ErrMissingField, header)
		}
		fields = strings.Split(header, "\t")
	}

	for _, required := range []string{FieldQuery, FieldTarget} {
		if !contains(fields, required) {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, required)
		}
	}

	d := NewDataset(fields)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, FieldQuery) {
			continue
		}

		a, err := NewAlignment(fields, strings.Split(line, "\t"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		d.Add(a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alignment file: %w", err)
	}

	return d, nil
}

func contains(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// Add files a under its query. Self alignments are dropped.
func (d *Dataset) Add(a *Alignment) {
	g, ok := d.groups[a.Query]
	if !ok {
		g = NewGroup(a.Query)
		d.groups[a.Query] = g
		d.order = append(d.order, a.Query)
	}
	g.Add(a)
}

// Group returns the alignments of query.
func (d *Dataset) Group(query string) (*Group, bool) {
	g, ok := d.groups[query]
	return g, ok
}

// Groups returns every group in first-seen order.
func (d *Dataset) Groups() []*Group {
	out := make([]*Group, len(d.order))
	for i, q := range d.order {
		out[i] = d.groups[q]
	}
	return out
}

// Count returns the number of alignments.
func (d *Dataset) Count() int {
	n := 0
	for _, g := range d.groups {
		n += g.Len()
	}
	return n
}

// Merge adds every alignment of other. Queries present in both keep d's
// alignments first.
func (d *Dataset) Merge(other *Dataset) {
	for _, f := range other.Fields {
		if !contains(d.Fields, f) {
			d.Fields = append(d.Fields, f)
		}
	}
	for _, g := range other.Groups() {
		for _, a := range g.Alignments {
			d.Add(a)
		}
	}
}

// SetField sets a pass-through column on every alignment and adds it to the
// output columns.
func (d *Dataset) SetField(field, value string) {
	if !contains(d.Fields, field) {
		d.Fields = append(d.Fields, field)
	}
	for _, g := range d.groups {
		for _, a := range g.Alignments {
			a.SetExtra(field, value)
		}
	}
}

// AddFields appends output columns that are not present yet.
func (d *Dataset) AddFields(fields ...string) {
	for _, f := range fields {
		if !contains(d.Fields, f) {
			d.Fields = append(d.Fields, f)
		}
	}
}

// Adjacency returns the query to target relation of the dataset.
func (d *Dataset) Adjacency() clusters.Alignments {
	adj := make(clusters.Alignments, len(d.groups))
	for _, g := range d.groups {
		for _, a := range g.Alignments {
			adj.Add(a.Query, a.Target)
		}
	}
	return adj
}

// Write writes a header and every alignment using d.Fields. Missing columns
// are written empty.
func (d *Dataset) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.Join(d.Fields, "\t")); err != nil {
		return err
	}

	row := make([]string, len(d.Fields))
	for _, g := range d.Groups() {
		for _, a := range g.Alignments {
			for i, f := range d.Fields {
				row[i], _ = a.Field(f)
			}
			if _, err := fmt.Fprintln(bw, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile writes the dataset to path, creating parent directories.
func (d *Dataset) WriteFile(path string) error {
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

	if err := d.Write(file); err != nil {
		return fmt.Errorf("failed to write alignments: %w", err)
	}
	return file.Close()
}

// TopQuery returns the member of c whose alignments best represent the
// cluster: the most alignments, then the highest mean alntmscore, then the
// smallest name. A cluster without alignments is represented by its rep.
func (d *Dataset) TopQuery(c *clusters.Cluster) string {
	best := ""
	bestCount := 0
	bestScore := 0.0

	for _, member := range c.MemberNames() {
		g, ok := d.groups[member]
		if !ok || g.Len() == 0 {
			continue
		}
		count, score := g.Len(), g.MeanTMScore()
		if best == "" || count > bestCount || (count == bestCount && score > bestScore) {
			best, bestCount, bestScore = member, count, score
		}
	}

	if best == "" {
		return c.Rep
	}
	return best
}

// Cluster label columns written by LabelClusters
const (
	FieldClusterID    = "cluster_ID"
	FieldClusterCount = "cluster_count"
	FieldTopQuery     = "top_query"
)

// LabelClusters tags every alignment whose query is a member of set with its
// cluster's ID, count of members with alignments and top query. Clusters
// with no aligned member are skipped. IDs rank clusters by count, ties by
// representative. Returns the number of labelled clusters.
func (d *Dataset) LabelClusters(set *clusters.Set) int {
	type labelled struct {
		cluster *clusters.Cluster
		groups  []*Group
	}

	var ranked []labelled
	for _, rep := range set.Reps() {
		c, _ := set.Get(rep)
		l := labelled{cluster: c}
		for _, member := range c.MemberNames() {
			if g, ok := d.groups[member]; ok {
				l.groups = append(l.groups, g)
			}
		}
		if len(l.groups) > 0 {
			ranked = append(ranked, l)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].groups) > len(ranked[j].groups)
	})

	d.AddFields(FieldClusterID, FieldClusterCount, FieldTopQuery)
	for i, l := range ranked {
		id := strconv.Itoa(i + 1)
		count := strconv.Itoa(len(l.groups))
		top := d.TopQuery(l.cluster)
		for _, g := range l.groups {
			for _, a := range g.Alignments {
				a.SetExtra(FieldClusterID, id)
				a.SetExtra(FieldClusterCount, count)
				a.SetExtra(FieldTopQuery, top)
			}
		}
	}
	return len(ranked)
}
