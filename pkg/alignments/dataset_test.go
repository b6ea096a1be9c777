package alignments

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/clusters"
)

func mustAlignment(t *testing.T, fields []string, values ...string) *Alignment {
	t.Helper()
	a, err := NewAlignment(fields, values)
	require.NoError(t, err)
	return a
}

func scoreGroup(t *testing.T) *Group {
	t.Helper()
	fields := []string{"query", "target", "alntmscore"}
	g := NewGroup("query")
	for _, row := range [][]string{
		{"q1", "t", "4.2E-01"},
		{"q2", "t", "1.2E-01"},
		{"q3", "t", "6.0E-01"},
		{"q4", "t", "0.1E-01"},
		{"q5", "t", "3.0E-01"},
	} {
		require.True(t, g.Add(mustAlignment(t, fields, row...)))
	}
	return g
}

func queries(g *Group) []string {
	out := make([]string, len(g.Alignments))
	for i, a := range g.Alignments {
		out[i] = a.Query
	}
	return out
}

func TestNewAlignment(t *testing.T) {
	fields := append(append([]string{}, CoreFields...), "taxid")
	a := mustAlignment(t, fields,
		"q", "t", "0.5", "100", "3", "1", "2", "101", "5", "104", "1.2E-10", "250", "0.87", "9606")

	assert.Equal(t, "q", a.Query)
	assert.Equal(t, 0.87, a.AlnTMScore)
	assert.Equal(t, 101, a.QEnd)
	assert.Equal(t, 1.2e-10, a.EValue)
	assert.Equal(t, map[string]string{"taxid": "9606"}, a.Extra)

	// Original text is kept for writing
	v, ok := a.Field(FieldEValue)
	assert.True(t, ok)
	assert.Equal(t, "1.2E-10", v)

	_, ok = a.Field("absent")
	assert.False(t, ok)
}

func TestNewAlignmentErrors(t *testing.T) {
	_, err := NewAlignment([]string{"query", "target"}, []string{"q"})
	assert.ErrorIs(t, err, ErrFieldCount)

	_, err = NewAlignment([]string{"query", "target", "alnlen"}, []string{"q", "t", "long"})
	assert.ErrorIs(t, err, ErrFieldFormat)
}

func TestGroupDropsSelfAlignments(t *testing.T) {
	g := NewGroup("seq1")
	assert.False(t, g.Add(&Alignment{Query: "seq1", Target: "seq1"}))
	assert.True(t, g.Add(&Alignment{Query: "seq1", Target: "seq2"}))
	assert.Equal(t, 1, g.Len())
}

func TestGroupFilter(t *testing.T) {
	g := scoreGroup(t)
	require.NoError(t, g.Filter(FieldAlnTMScore, 1, 0.3))

	assert.Equal(t, []string{"q1", "q3", "q5"}, queries(g))

	err := g.Filter("absent", 1, 0)
	assert.ErrorIs(t, err, ErrNoField)
}

func TestGroupKeepTopN(t *testing.T) {
	g := scoreGroup(t)
	require.NoError(t, g.KeepTopN(FieldAlnTMScore, 3))

	assert.Equal(t, []string{"q3", "q1", "q5"}, queries(g))

	require.NoError(t, g.KeepTopN(FieldAlnTMScore, 10))
	assert.Equal(t, 3, g.Len())
}

func TestParse(t *testing.T) {
	input := "query\ttarget\talntmscore\tsource\n" +
		"a\tb\t0.9\tpdb\n" +
		"a\ta\t1\tpdb\n" +
		"query\ttarget\talntmscore\tsource\n" +
		"c\ta\t0.5\tafdb\n" +
		"a\tc\t0.7\tafdb\n"

	d, err := Parse(strings.NewReader(input), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, d.Count())
	assert.Equal(t, []string{"query", "target", "alntmscore", "source"}, d.Fields)

	groups := d.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].Query)
	assert.Equal(t, 2, groups[0].Len())

	adj := d.Adjacency()
	assert.Contains(t, adj["a"], "b")
	assert.Contains(t, adj["c"], "a")
	assert.NotContains(t, adj["a"], "a")
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("a\tb\n"), nil)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Parse(strings.NewReader("a\n"), []string{"query"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Parse(strings.NewReader("a\tb\tc\n"), []string{"query", "target"})
	assert.ErrorIs(t, err, ErrFieldCount)
}

func TestWriteRoundTrip(t *testing.T) {
	input := "query\ttarget\tevalue\textra\n" +
		"a\tb\t1.000E-05\tx\n" +
		"b\ta\t3E-2\ty\n"

	d, err := Parse(strings.NewReader(input), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	assert.Equal(t, input, buf.String())
}

func TestMergeAndSetField(t *testing.T) {
	fields := []string{"query", "target"}
	one := NewDataset(fields)
	one.Add(mustAlignment(t, fields, "a", "b"))
	two := NewDataset([]string{"query", "target", "bits"})
	two.Add(mustAlignment(t, two.Fields, "a", "c", "12"))
	two.Add(mustAlignment(t, two.Fields, "d", "a", "30"))

	one.Merge(two)
	one.SetField("source", "merged")

	assert.Equal(t, 3, one.Count())
	assert.Equal(t, []string{"query", "target", "bits", "source"}, one.Fields)

	g, ok := one.Group("a")
	require.True(t, ok)
	assert.Equal(t, "b", g.Alignments[0].Target)
	assert.Equal(t, "c", g.Alignments[1].Target)
	assert.Equal(t, "merged", g.Alignments[1].Extra["source"])

	var buf bytes.Buffer
	require.NoError(t, one.Write(&buf))
	assert.Contains(t, buf.String(), "a\tb\t\tmerged\n")
}

func topQueryDataset(t *testing.T, withFourth bool) *Dataset {
	t.Helper()
	fields := []string{"query", "target", "alntmscore"}
	d := NewDataset(fields)
	for _, row := range [][]string{
		{"seq1", "seq2", "0.9"},
		{"seq1", "seq3", "0.8"},
		{"seq1", "seq4", "0.9"},
		{"seq1", "seq1", "1"},
		{"seq5", "seq6", "0.9"},
		{"seq5", "seq7", "0.1"},
		{"seq5", "seq8", "0.1"},
	} {
		d.Add(mustAlignment(t, fields, row...))
	}
	if withFourth {
		d.Add(mustAlignment(t, fields, "seq5", "seq9", "0.1"))
	}
	return d
}

func clusterOf(t *testing.T, rep string, members ...string) (*clusters.Set, *clusters.Cluster) {
	t.Helper()
	set := clusters.NewSet()
	for _, m := range members {
		require.NoError(t, set.Add(rep, m, nil))
	}
	c, _ := set.Get(rep)
	return set, c
}

func TestTopQueryMoreAlignments(t *testing.T) {
	_, c := clusterOf(t, "seq1", "seq1", "seq2", "seq3", "seq4", "seq5", "seq6", "seq7", "seq8", "seq9")
	assert.Equal(t, "seq5", topQueryDataset(t, true).TopQuery(c))
}

func TestTopQueryHigherMeanTMScore(t *testing.T) {
	_, c := clusterOf(t, "seq1", "seq1", "seq2", "seq3", "seq4", "seq5", "seq6")
	assert.Equal(t, "seq1", topQueryDataset(t, false).TopQuery(c))
}

func TestTopQueryNoAlignments(t *testing.T) {
	_, c := clusterOf(t, "seq10", "seq10")
	assert.Equal(t, "seq10", topQueryDataset(t, true).TopQuery(c))
}

func TestTopQueryTieByName(t *testing.T) {
	fields := []string{"query", "target", "alntmscore"}
	d := NewDataset(fields)
	d.Add(mustAlignment(t, fields, "zeta", "x", "0.5"))
	d.Add(mustAlignment(t, fields, "alpha", "x", "0.5"))

	_, c := clusterOf(t, "zeta", "zeta", "alpha")
	assert.Equal(t, "alpha", d.TopQuery(c))
}

func TestLabelClusters(t *testing.T) {
	d := topQueryDataset(t, true)
	d.Add(mustAlignment(t, d.Fields, "seq9", "seq1", "0.4"))
	set := clusters.NewSet()
	require.NoError(t, set.Add("seq1", "seq1", nil))
	require.NoError(t, set.Add("seq5", "seq5", nil))
	require.NoError(t, set.Add("seq5", "seq9", nil))
	require.NoError(t, set.Add("lonely", "lonely", nil))

	assert.Equal(t, 2, d.LabelClusters(set))
	assert.Equal(t, []string{"query", "target", "alntmscore", "cluster_ID", "cluster_count", "top_query"}, d.Fields)

	// seq5 and seq9 both have alignments, so their cluster ranks first
	g, _ := d.Group("seq9")
	assert.Equal(t, "1", g.Alignments[0].Extra[FieldClusterID])
	assert.Equal(t, "2", g.Alignments[0].Extra[FieldClusterCount])
	assert.Equal(t, "seq5", g.Alignments[0].Extra[FieldTopQuery])

	g, _ = d.Group("seq1")
	assert.Equal(t, "2", g.Alignments[0].Extra[FieldClusterID])
	assert.Equal(t, "1", g.Alignments[0].Extra[FieldClusterCount])
}
