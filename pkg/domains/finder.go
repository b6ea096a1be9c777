package domains

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/config"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/louvain"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/pae"
)

// Structure is the part of a structure model the domain finder needs.
type Structure interface {
	ResidueCount() int
	// ExtractSubset writes the residues at positions to path. Positions are
	// 1-indexed when oneIndexed is set, otherwise 0-indexed.
	ExtractSubset(positions []int, oneIndexed bool, path string) error
}

// Request describes one domain finding run.
type Request struct {
	StructurePath string // names the output files
	OutputDir     string
	PLDDTReport   string // appended to when non-empty
	PAEReport     string // appended to when non-empty
}

// Report summarises a finished run.
type Report struct {
	RunID      string
	Candidates int
	Outcome    Outcome
	Files      []string
	RuntimeMS  int64
}

// Finder runs the smoothing, partitioning and filtering pipeline.
type Finder struct {
	config *config.Config
	logger zerolog.Logger
}

// NewFinder creates a finder reading its parameters from cfg.
func NewFinder(cfg *config.Config, logger zerolog.Logger) *Finder {
	return &Finder{config: cfg, logger: logger}
}

// SmoothOptions returns the configured smoothing options.
func (f *Finder) SmoothOptions() pae.SmoothOptions {
	return pae.SmoothOptions{
		Threshold:    f.config.SmoothThreshold(),
		MinRun:       f.config.SmoothN(),
		BlockReplace: f.config.BlockReplace(),
	}
}

// Policy returns the configured filter policy.
func (f *Finder) Policy() Policy {
	return Policy{
		MinLength: f.config.MinDomainLength(),
		MinPLDDT:  f.config.MinDomainPLDDT(),
	}
}

// Partition smooths the matrix when enabled and splits the residues into
// candidate domains. The returned matrix is the one the graph was built from.
func (f *Finder) Partition(ctx context.Context, m *pae.Matrix, logger zerolog.Logger) ([]Domain, *pae.Matrix, error) {
	opts := f.SmoothOptions()
	if opts.MinRun != 0 {
		logger.Info().Int("smooth_n", opts.MinRun).Msg("Smoothing PAE matrix")
		m = pae.SmoothMatrix(m, opts)
	}

	g, err := BuildGraph(m, f.config.PAEPower(), f.config.PAECutoff())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build residue graph: %w", err)
	}

	result, err := louvain.GreedyModularity(ctx, g, f.config.GraphResolution(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("community detection failed: %w", err)
	}

	cands := make([]Domain, len(result.Communities))
	for i, c := range result.Communities {
		cands[i] = NewDomain(c)
	}
	return cands, m, nil
}

// Run finds the domains of one structure and writes one file per domain to
// req.OutputDir. An empty outcome writes nothing and is not an error.
func (f *Finder) Run(ctx context.Context, req Request, scores *pae.Scores, s Structure) (*Report, error) {
	startTime := time.Now()
	report := &Report{RunID: uuid.New().String()}
	logger := f.logger.With().Str("run_id", report.RunID).Str("structure", req.StructurePath).Logger()

	cands, smoothed, err := f.Partition(ctx, scores.PAE, logger)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(cands)

	outcome, err := Resolve(cands, scores.PLDDT, s.ResidueCount(), f.Policy())
	if err != nil {
		return nil, err
	}
	report.Outcome = outcome

	if outcome.FellBack {
		logger.Info().Msg("No domain passed filtering, used whole structure")
	}
	if outcome.Empty {
		logger.Warn().Msg("No domains found and the whole structure did not pass filtering")
		report.RuntimeMS = time.Since(startTime).Milliseconds()
		return report, nil
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := filepath.Ext(req.StructurePath)
	if ext == "" {
		ext = ".pdb"
	}
	basename := strings.TrimSuffix(filepath.Base(req.StructurePath), ext)

	for i, d := range outcome.Domains {
		name := DomainFileName(basename, i+1, ext)
		path := filepath.Join(req.OutputDir, name)
		if err := s.ExtractSubset(d.OneIndexed(), true, path); err != nil {
			return nil, fmt.Errorf("failed to write domain %s: %w", name, err)
		}
		report.Files = append(report.Files, path)

		if req.PLDDTReport != "" {
			avg, err := AveragePLDDT(d, scores.PLDDT)
			if err != nil {
				return nil, err
			}
			if err := appendReport(req.PLDDTReport, name, avg); err != nil {
				return nil, err
			}
		}
		if req.PAEReport != "" {
			avg, _ := smoothed.AveragePAE(d.Positions())
			if err := appendReport(req.PAEReport, name, avg); err != nil {
				return nil, err
			}
		}

		logger.Debug().Str("file", name).Int("length", d.Len()).Msg("Wrote domain")
	}

	report.RuntimeMS = time.Since(startTime).Milliseconds()
	logger.Info().
		Int("candidates", report.Candidates).
		Int("domains", len(outcome.Domains)).
		Int64("runtime_ms", report.RuntimeMS).
		Msg("Domain finding completed")

	return report, nil
}

// DomainFileName returns "{basename}_domain-{i}{ext}" for a 1-indexed i.
func DomainFileName(basename string, i int, ext string) string {
	return fmt.Sprintf("%s_domain-%d%s", basename, i, ext)
}

func appendReport(path, name string, value float64) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s\t%s\n", name, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
