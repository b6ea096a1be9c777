package clusters

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/config"
)

// Resolver groups base clusters into superclusters.
type Resolver struct {
	config *config.Config
	logger zerolog.Logger
}

// NewResolver creates a resolver reading linkage settings from cfg.
func NewResolver(cfg *config.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{config: cfg, logger: logger}
}

// Resolve links clusters whose cross-cluster alignment fraction reaches the
// configured threshold in either direction and returns the ranked transitive
// closure. A non-zero linkage.timeout bounds the pairwise comparisons.
func (r *Resolver) Resolve(ctx context.Context, set *Set, alignments Alignments) ([]Supercluster, error) {
	startTime := time.Now()

	if timeout := r.config.LinkageTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	linkages, err := ComputeLinkages(ctx, set, alignments, LinkageOptions{
		Threshold: r.config.LinkageThreshold(),
		Workers:   r.config.NumWorkers(),
		Progress:  r.config.EnableProgress(),
	}, r.logger)
	if err != nil {
		return nil, err
	}

	scs, err := Materialize(Components(linkages), set)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize superclusters: %w", err)
	}

	r.logger.Info().
		Int("clusters", set.Len()).
		Int("superclusters", len(scs)).
		Int64("runtime_ms", time.Since(startTime).Milliseconds()).
		Msg("Superclusters resolved")

	return scs, nil
}

// Merge joins clusters connected by any single alignment between their
// members. Clusters without alignments become singleton superclusters.
func (r *Resolver) Merge(set *Set, alignments Alignments) ([]Supercluster, error) {
	linkages, skipped := MemberLinkages(set, alignments)
	if skipped > 0 {
		r.logger.Warn().Int("skipped", skipped).Msg("Alignments reference structures outside the cluster file")
	}

	scs, err := Materialize(Complete(Components(linkages), set), set)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize superclusters: %w", err)
	}

	r.logger.Info().
		Int("clusters", set.Len()).
		Int("superclusters", len(scs)).
		Msg("Clusters merged")

	return scs, nil
}
