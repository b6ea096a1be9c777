package clusters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/config"
)

func linkagesOf(pairs map[string][]string) Linkages {
	l := make(Linkages)
	for a, bs := range pairs {
		if _, ok := l[a]; !ok {
			l[a] = make(map[string]struct{})
		}
		for _, b := range bs {
			l[a][b] = struct{}{}
		}
	}
	return l
}

func mustSet(t *testing.T, clusters map[string][]string) *Set {
	t.Helper()
	set := NewSet()
	for rep, members := range clusters {
		for _, m := range members {
			require.NoError(t, set.Add(rep, m, nil))
		}
	}
	return set
}

func TestComponentsAllLinked(t *testing.T) {
	l := linkagesOf(map[string][]string{
		"1": {"2", "3"},
		"2": {"2", "3"},
		"3": {"2", "3"},
	})
	assert.Equal(t, [][]string{{"1", "2", "3"}}, Components(l))
}

func TestComponentsTwoLinked(t *testing.T) {
	// 6 is only ever a link target
	l := linkagesOf(map[string][]string{
		"1": {"1", "2"},
		"2": {"1", "2"},
		"3": {"6"},
	})
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "6"}}, Components(l))
}

func TestComponentsTransitive(t *testing.T) {
	// a-b and b-c link a to c without a direct link
	l := linkagesOf(map[string][]string{
		"a": {"a", "b"},
		"b": {"a", "b", "c"},
		"c": {"b", "c"},
		"d": {"d"},
	})
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d"}}, Components(l))
}

func TestFraction(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"A": {"a1", "a2", "a3", "a4"},
		"B": {"b1", "b2"},
	})
	aln := make(Alignments)
	aln.Add("a1", "b1")
	aln.Add("a2", "b2")
	aln.Add("a2", "a3")
	aln.Add("b1", "x")

	a, _ := set.Get("A")
	b, _ := set.Get("B")
	assert.InDelta(t, 0.5, Fraction(a, b, aln), 1e-12)
	assert.InDelta(t, 0.0, Fraction(b, a, aln), 1e-12)
}

func TestComputeLinkagesEitherDirection(t *testing.T) {
	// Small cluster S is fully reached from L, the reverse fraction is low
	set := mustSet(t, map[string][]string{
		"L": {"l1", "l2", "l3", "l4", "l5"},
		"S": {"s1"},
		"Z": {"z1", "z2"},
	})
	aln := make(Alignments)
	aln.Add("s1", "l1")

	linkages, err := ComputeLinkages(context.Background(), set, aln, LinkageOptions{Threshold: 0.5, Workers: 2}, zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, linkages.Linked("L", "S"))
	assert.True(t, linkages.Linked("S", "L"))
	assert.False(t, linkages.Linked("L", "Z"))
	assert.True(t, linkages.Linked("Z", "Z"))
}

func TestComputeLinkagesInvalidThreshold(t *testing.T) {
	_, err := ComputeLinkages(context.Background(), NewSet(), nil, LinkageOptions{Threshold: 1.5}, zerolog.Nop())
	assert.Error(t, err)
}

func TestComputeLinkagesCancelled(t *testing.T) {
	set := mustSet(t, map[string][]string{"a": {"a"}, "b": {"b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ComputeLinkages(ctx, set, make(Alignments), LinkageOptions{Threshold: 0.5, Workers: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaterializeRanking(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"a": {"a", "a2"},
		"b": {"b", "b2"},
		"c": {"c", "c2", "c3"},
		"d": {"d"},
	})

	scs, err := Materialize([][]string{{"d"}, {"a", "b"}, {"c"}}, set)
	require.NoError(t, err)
	require.Len(t, scs, 3)

	assert.Equal(t, Supercluster{ID: 1, Reps: []string{"a", "b"}, TotalMemberCount: 4, LargestSubclusterRep: "a"}, scs[0])
	assert.Equal(t, Supercluster{ID: 2, Reps: []string{"c"}, TotalMemberCount: 3, LargestSubclusterRep: "c"}, scs[1])
	assert.Equal(t, Supercluster{ID: 3, Reps: []string{"d"}, TotalMemberCount: 1, LargestSubclusterRep: "d"}, scs[2])
}

func TestMaterializeTieBreak(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"x": {"x"},
		"m": {"m"},
	})

	scs, err := Materialize([][]string{{"x"}, {"m"}}, set)
	require.NoError(t, err)
	assert.Equal(t, "m", scs[0].LargestSubclusterRep)
	assert.Equal(t, "x", scs[1].LargestSubclusterRep)
}

func TestMaterializeErrors(t *testing.T) {
	set := mustSet(t, map[string][]string{"a": {"a"}, "b": {"b"}})

	_, err := Materialize([][]string{{"a"}}, set)
	assert.ErrorIs(t, err, ErrMisplacedCluster)

	_, err = Materialize([][]string{{"a", "b"}, {"b"}}, set)
	assert.ErrorIs(t, err, ErrMisplacedCluster)

	_, err = Materialize([][]string{{"a", "b", "q"}}, set)
	assert.ErrorIs(t, err, ErrUnknownCluster)
}

func TestWriteSuperclusters(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"a": {"a", "a2"},
		"b": {"b"},
	})
	scs := []Supercluster{{ID: 1, Reps: []string{"a", "b"}, TotalMemberCount: 3, LargestSubclusterRep: "a"}}

	var buf bytes.Buffer
	require.NoError(t, WriteSuperclusters(&buf, scs, set, SubclusterRepColumn))

	expected := "cluster_rep\tcluster_member\tcluster_ID\tcluster_count\tsubcluster_rep\n" +
		"a\ta\t1\t3\ta\n" +
		"a\ta2\t1\t3\ta\n" +
		"a\tb\t1\t3\tb\n"
	assert.Equal(t, expected, buf.String())

	// Missing cluster b from the output fails the member check
	buf.Reset()
	err := WriteSuperclusters(&buf, []Supercluster{{ID: 1, Reps: []string{"a"}}}, set, OldRepColumn)
	assert.ErrorIs(t, err, ErrMemberCountMismatch)
}

func TestResolverResolve(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"r1": {"r1", "m1"},
		"r2": {"r2", "m2", "m3"},
		"r3": {"r3"},
		"r4": {"r4"},
	})
	aln := make(Alignments)
	aln.Add("r1", "r2")
	aln.Add("m1", "m2")
	aln.Add("r3", "r4")
	aln.Add("r4", "r1")

	cfg := config.NewConfig()
	cfg.Set("linkage.threshold", 1.0)
	cfg.Set("linkage.timeout", time.Minute)

	scs, err := NewResolver(cfg, zerolog.Nop()).Resolve(context.Background(), set, aln)
	require.NoError(t, err)

	// r4 fully reaches r1 and r3 fully reaches r4, so all four merge
	require.Len(t, scs, 1)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, scs[0].Reps)
	assert.Equal(t, 7, scs[0].TotalMemberCount)
	assert.Equal(t, "r2", scs[0].LargestSubclusterRep)
}

func TestResolverMerge(t *testing.T) {
	set := mustSet(t, map[string][]string{
		"r1": {"r1", "m1"},
		"r2": {"r2"},
		"r3": {"r3", "m3", "n3"},
	})
	aln := make(Alignments)
	aln.Add("m1", "r2")
	aln.Add("m1", "outside")

	scs, err := NewResolver(config.NewConfig(), zerolog.Nop()).Merge(set, aln)
	require.NoError(t, err)
	require.Len(t, scs, 2)

	assert.Equal(t, []string{"r1", "r2"}, scs[0].Reps)
	assert.Equal(t, 3, scs[0].TotalMemberCount)
	assert.Equal(t, 3, scs[1].TotalMemberCount)
	// Equal counts rank by name
	assert.Equal(t, "r1", scs[0].LargestSubclusterRep)
	assert.Equal(t, "r3", scs[1].LargestSubclusterRep)
}

func TestSuperclusterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// sizes gives the member count of each cluster, edges index member pairs
	build := func(sizes []int, edges []int) (*Set, Alignments) {
		set := NewSet()
		names := make([]string, 0)
		for c, size := range sizes {
			rep := fmt.Sprintf("c%02d", c)
			for m := 0; m < size; m++ {
				name := fmt.Sprintf("%s_m%d", rep, m)
				_ = set.Add(rep, name, nil)
				names = append(names, name)
			}
		}
		aln := make(Alignments)
		for i := 0; i+1 < len(edges) && len(names) > 0; i += 2 {
			query, target := names[edges[i]%len(names)], names[edges[i+1]%len(names)]
			if query != target {
				aln.Add(query, target)
			}
		}
		return set, aln
	}

	inputs := []gopter.Gen{
		gen.SliceOfN(8, gen.IntRange(1, 5)),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.Float64Range(0, 1),
	}

	properties.Property("linkage is symmetric", prop.ForAll(
		func(sizes []int, edges []int, threshold float64) bool {
			set, aln := build(sizes, edges)
			l, err := ComputeLinkages(context.Background(), set, aln, LinkageOptions{Threshold: threshold, Workers: 3}, zerolog.Nop())
			if err != nil {
				return false
			}
			for _, a := range set.Reps() {
				for _, b := range set.Reps() {
					if l.Linked(a, b) != l.Linked(b, a) {
						return false
					}
				}
			}
			return true
		},
		inputs...,
	))

	properties.Property("superclusters partition the clusters", prop.ForAll(
		func(sizes []int, edges []int, threshold float64) bool {
			set, aln := build(sizes, edges)
			l, err := ComputeLinkages(context.Background(), set, aln, LinkageOptions{Threshold: threshold, Workers: 2}, zerolog.Nop())
			if err != nil {
				return false
			}
			scs, err := Materialize(Components(l), set)
			if err != nil {
				return false
			}
			seen := make(map[string]int)
			total := 0
			for i, sc := range scs {
				if sc.ID != i+1 {
					return false
				}
				if i > 0 && scs[i-1].TotalMemberCount < sc.TotalMemberCount {
					return false
				}
				total += sc.TotalMemberCount
				for _, rep := range sc.Reps {
					seen[rep]++
				}
			}
			for _, rep := range set.Reps() {
				if seen[rep] != 1 {
					return false
				}
			}
			var buf bytes.Buffer
			if err := WriteSuperclusters(&buf, scs, set, SubclusterRepColumn); err != nil {
				return false
			}
			rows := strings.Count(buf.String(), "\n") - 1
			return total == set.TotalMembers() && rows == total
		},
		inputs...,
	))

	properties.TestingRun(t)
}
