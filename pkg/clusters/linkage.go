package clusters

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Alignments maps a member to the members it has an alignment against.
type Alignments map[string]map[string]struct{}

// Add records an alignment from query to target.
func (a Alignments) Add(query, target string) {
	targets, ok := a[query]
	if !ok {
		targets = make(map[string]struct{})
		a[query] = targets
	}
	targets[target] = struct{}{}
}

// Symmetric returns a copy in which every alignment also runs the other way.
func (a Alignments) Symmetric() Alignments {
	out := make(Alignments, len(a))
	for q, targets := range a {
		for t := range targets {
			out.Add(q, t)
			out.Add(t, q)
		}
	}
	return out
}

// Linkages maps a representative to the representatives it is linked to.
type Linkages map[string]map[string]struct{}

func (l Linkages) link(a, b string) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		set, ok := l[pair[0]]
		if !ok {
			set = make(map[string]struct{})
			l[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}

// Linked reports whether a and b are linked.
func (l Linkages) Linked(a, b string) bool {
	_, ok := l[a][b]
	return ok
}

// Fraction returns the fraction of a's members with at least one alignment
// to a member of b. Members without alignments count as unaligned.
func Fraction(a, b *Cluster, alignments Alignments) float64 {
	if a.Size() == 0 {
		return 0
	}

	aligned := 0
	for _, m := range a.Members {
		for target := range alignments[m.Name] {
			if b.Contains(target) {
				aligned++
				break
			}
		}
	}
	return float64(aligned) / float64(a.Size())
}

// LinkageOptions controls the pairwise linkage computation.
type LinkageOptions struct {
	Threshold float64
	Workers   int
	Progress  bool
}

// ComputeLinkages tests every unordered pair of distinct clusters. A pair is
// linked when either direction's Fraction reaches the threshold. Every
// cluster is linked to itself.
func ComputeLinkages(ctx context.Context, set *Set, alignments Alignments, opts LinkageOptions, logger zerolog.Logger) (Linkages, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("linkage threshold must be in [0,1]: %f", opts.Threshold)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	reps := set.Reps()
	n := len(reps)
	total := int64(n) * int64(n-1) / 2

	logger.Info().
		Int("clusters", n).
		Int64("comparisons", total).
		Int("workers", workers).
		Float64("threshold", opts.Threshold).
		Msg("Computing cluster linkages")

	// rows[i] holds the indices j > i linked to i
	rows := make([][]int, n)
	var done, reported int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			a, _ := set.Get(reps[i])
			for j := i + 1; j < n; j++ {
				if (j-i)%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				b, _ := set.Get(reps[j])
				if Fraction(a, b, alignments) >= opts.Threshold || Fraction(b, a, alignments) >= opts.Threshold {
					rows[i] = append(rows[i], j)
				}
			}

			count := atomic.AddInt64(&done, int64(n-1-i))
			if opts.Progress && total > 0 {
				percent := count * 100 / total
				last := atomic.LoadInt64(&reported)
				if percent > last && atomic.CompareAndSwapInt64(&reported, last, percent) {
					logger.Info().Int64("percent", percent).Msg("Linkage progress")
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("linkage computation interrupted: %w", err)
	}

	linkages := make(Linkages, n)
	pairs := 0
	for i, rep := range reps {
		linkages.link(rep, rep)
		for _, j := range rows[i] {
			linkages.link(rep, reps[j])
			pairs++
		}
	}

	logger.Info().Int("linked_pairs", pairs).Msg("Cluster linkages computed")
	return linkages, nil
}

// MemberLinkages links two clusters whenever any member of one has an
// alignment to any member of the other. Alignments naming structures outside
// the set are skipped and counted.
func MemberLinkages(set *Set, alignments Alignments) (Linkages, int) {
	linkages := make(Linkages, set.Len())
	skipped := 0
	for query, targets := range alignments {
		for target := range targets {
			qRep, qOK := set.RepOf(query)
			tRep, tOK := set.RepOf(target)
			if !qOK || !tOK {
				skipped++
				continue
			}
			linkages.link(qRep, tRep)
		}
	}
	return linkages, skipped
}
