package main

import (
	"context"
	"fmt"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/alignments"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/clusters"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/domains"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/pae"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/structure"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/taxonomy"
)

func runGetDomains(ctx context.Context, e *env, args []string) error {
	fs, cfg := e.fs, e.cfg
	fs.String("structure", "", "PDB file of the predicted structure")
	fs.String("scores", "", "scores JSON holding pae and plddt")
	fs.String("output-dir", "", "directory receiving one PDB file per domain")
	fs.String("plddt-report", "", "append domain average pLDDT to this file")
	fs.String("pae-report", "", "append domain average PAE to this file")
	plddtFromStructure := fs.Bool("plddt-from-structure", false, "read pLDDT from the structure B-factors")

	fs.Float64("pae-power", cfg.PAEPower(), "exponent applied to 1/PAE edge weights")
	fs.Float64("pae-cutoff", cfg.PAECutoff(), "residue pairs at or above this PAE get no edge")
	fs.Float64("graph-resolution", cfg.GraphResolution(), "modularity resolution")
	fs.Int("min-domain-length", cfg.MinDomainLength(), "minimum residues per domain")
	fs.Float64("min-domain-plddt", cfg.MinDomainPLDDT(), "minimum average pLDDT per domain")
	fs.Int("smooth-n", cfg.SmoothN(), "smooth PAE runs shorter than this, 0 disables")
	e.bind("domains.pae_power", "pae-power")
	e.bind("domains.pae_cutoff", "pae-cutoff")
	e.bind("domains.graph_resolution", "graph-resolution")
	e.bind("domains.min_domain_length", "min-domain-length")
	e.bind("domains.min_domain_plddt", "min-domain-plddt")
	e.bind("domains.smooth_n", "smooth-n")

	if err := e.parse(args); err != nil {
		return err
	}
	paths, err := e.required("structure", "scores", "output-dir")
	if err != nil {
		return err
	}
	plddtReport, _ := fs.GetString("plddt-report")
	paeReport, _ := fs.GetString("pae-report")

	model, err := structure.Open(paths[0])
	if err != nil {
		return err
	}
	scores, err := pae.ReadScores(paths[1])
	if err != nil {
		return err
	}
	if *plddtFromStructure {
		plddt := model.PLDDT()
		if len(plddt) != scores.PAE.Size() {
			return fmt.Errorf("structure has %d residues but the PAE matrix covers %d", len(plddt), scores.PAE.Size())
		}
		scores.PLDDT = plddt
	}

	report, err := domains.NewFinder(cfg, e.logger).Run(ctx, domains.Request{
		StructurePath: paths[0],
		OutputDir:     paths[2],
		PLDDTReport:   plddtReport,
		PAEReport:     paeReport,
	}, scores, model)
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("run_id", report.RunID).
		Int("domains", len(report.Outcome.Domains)).
		Bool("whole_structure", report.Outcome.FellBack).
		Msg("Done")
	return nil
}

// addLinkageInputs declares the flags shared by the supercluster commands.
func addLinkageInputs(e *env) {
	e.fs.String("clusters", "", "cluster file with cluster_rep and cluster_member columns")
	e.fs.String("alignments", "", "alignment file")
	e.fs.String("output", "", "supercluster output file")
	e.fs.StringSlice("cluster-fields", nil, "cluster file columns when it has no header")
	e.fs.StringSlice("alignment-fields", nil, "alignment file columns when it has no header")
}

func readLinkageInputs(e *env) (*clusters.Set, *alignments.Dataset, string, error) {
	paths, err := e.required("clusters", "alignments", "output")
	if err != nil {
		return nil, nil, "", err
	}
	clusterFields, _ := e.fs.GetStringSlice("cluster-fields")
	alignmentFields, _ := e.fs.GetStringSlice("alignment-fields")

	set, err := clusters.ParseFile(paths[0], clusterFields)
	if err != nil {
		return nil, nil, "", err
	}
	d, err := alignments.ParseFile(paths[1], alignmentFields)
	if err != nil {
		return nil, nil, "", err
	}

	e.logger.Info().
		Int("clusters", set.Len()).
		Int("members", set.TotalMembers()).
		Int("alignments", d.Count()).
		Msg("Inputs loaded")
	return set, d, paths[2], nil
}

func runSuperclusters(ctx context.Context, e *env, args []string) error {
	addLinkageInputs(e)
	cfg := e.cfg
	e.fs.Float64("linkage-threshold", cfg.LinkageThreshold(), "fraction of members that must align to link two clusters")
	e.fs.Int("workers", cfg.NumWorkers(), "parallel linkage workers")
	e.fs.Duration("timeout", cfg.LinkageTimeout(), "bound on linkage computation, 0 disables")
	e.bind("linkage.threshold", "linkage-threshold")
	e.bind("linkage.num_workers", "workers")
	e.bind("linkage.timeout", "timeout")

	if err := e.parse(args); err != nil {
		return err
	}
	set, d, output, err := readLinkageInputs(e)
	if err != nil {
		return err
	}

	scs, err := clusters.NewResolver(cfg, e.logger).Resolve(ctx, set, d.Adjacency())
	if err != nil {
		return err
	}
	return clusters.WriteSuperclustersFile(output, scs, set, clusters.SubclusterRepColumn)
}

func runMergeClusters(ctx context.Context, e *env, args []string) error {
	addLinkageInputs(e)
	if err := e.parse(args); err != nil {
		return err
	}
	set, d, output, err := readLinkageInputs(e)
	if err != nil {
		return err
	}

	scs, err := clusters.NewResolver(e.cfg, e.logger).Merge(set, d.Adjacency())
	if err != nil {
		return err
	}
	return clusters.WriteSuperclustersFile(output, scs, set, clusters.OldRepColumn)
}

func runFilterAlignments(ctx context.Context, e *env, args []string) error {
	fs := e.fs
	fs.String("alignments", "", "alignment file")
	fs.String("output", "", "filtered alignment file")
	fs.StringSlice("alignment-fields", nil, "alignment file columns when it has no header")
	field := fs.String("field", alignments.FieldAlnTMScore, "numeric column to filter on")
	minValue := fs.Float64("min", 0, "lowest kept value, inclusive")
	maxValue := fs.Float64("max", 1, "highest kept value, inclusive")
	topN := fs.Int("top-n", -1, "keep at most this many alignments per query, -1 keeps all")

	if err := e.parse(args); err != nil {
		return err
	}
	paths, err := e.required("alignments", "output")
	if err != nil {
		return err
	}
	fields, _ := fs.GetStringSlice("alignment-fields")

	d, err := alignments.ParseFile(paths[0], fields)
	if err != nil {
		return err
	}
	before := d.Count()

	for _, g := range d.Groups() {
		if err := g.Filter(*field, *maxValue, *minValue); err != nil {
			return err
		}
		if *topN >= 0 {
			if err := g.KeepTopN(*field, *topN); err != nil {
				return err
			}
		}
	}

	e.logger.Info().
		Int("before", before).
		Int("after", d.Count()).
		Str("field", *field).
		Msg("Alignments filtered")
	return d.WriteFile(paths[1])
}

func runAddClusters(ctx context.Context, e *env, args []string) error {
	fs := e.fs
	fs.String("alignments", "", "alignment file")
	fs.String("clusters", "", "cluster file")
	fs.String("output", "", "labelled alignment file")
	fs.StringSlice("cluster-fields", nil, "cluster file columns when it has no header")
	fs.StringSlice("alignment-fields", nil, "alignment file columns when it has no header")

	if err := e.parse(args); err != nil {
		return err
	}
	paths, err := e.required("alignments", "clusters", "output")
	if err != nil {
		return err
	}
	alignmentFields, _ := fs.GetStringSlice("alignment-fields")
	clusterFields, _ := fs.GetStringSlice("cluster-fields")

	d, err := alignments.ParseFile(paths[0], alignmentFields)
	if err != nil {
		return err
	}
	set, err := clusters.ParseFile(paths[1], clusterFields)
	if err != nil {
		return err
	}

	n := d.LabelClusters(set)
	e.logger.Info().Int("clusters", n).Msg("Alignments labelled")
	return d.WriteFile(paths[2])
}

// addTaxonomyInputs declares the flags shared by the taxonomy commands.
func addTaxonomyInputs(e *env) {
	cfg := e.cfg
	e.fs.String("alignments", "", "alignment file")
	e.fs.String("lineages", "", "lineage table with a taxid column followed by level columns")
	e.fs.String("output", "", "output file")
	e.fs.StringSlice("alignment-fields", nil, "alignment file columns when it has no header")
	e.fs.StringSlice("taxonomy-levels", cfg.TaxonomyLevels(), "lineage levels to report")
	e.fs.String("delimiter", cfg.TaxonomyDelimiter(), "separator before the taxon id in structure names")
	e.bind("taxonomy.levels", "taxonomy-levels")
	e.bind("taxonomy.delimiter", "delimiter")
}

func readTaxonomyInputs(e *env) (*alignments.Dataset, *taxonomy.Annotator, string, error) {
	paths, err := e.required("alignments", "lineages", "output")
	if err != nil {
		return nil, nil, "", err
	}
	fields, _ := e.fs.GetStringSlice("alignment-fields")

	table, err := taxonomy.LoadTable(paths[1])
	if err != nil {
		return nil, nil, "", err
	}
	d, err := alignments.ParseFile(paths[0], fields)
	if err != nil {
		return nil, nil, "", err
	}

	annotator := taxonomy.NewAnnotator(e.cfg, taxonomy.NewMemo(table), e.logger)
	return d, annotator, paths[2], nil
}

func runAddTaxonomy(ctx context.Context, e *env, args []string) error {
	addTaxonomyInputs(e)
	queryLoc := e.fs.Int("query-taxid-location", int(taxonomy.LocationName), "0 none, 1 from the query name")
	targetLoc := e.fs.Int("target-taxid-location", int(taxonomy.LocationName), "0 none, 1 from the target name, 2 from the taxid column")

	if err := e.parse(args); err != nil {
		return err
	}
	query, err := taxonomy.ParseLocation(*queryLoc)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	target, err := taxonomy.ParseLocation(*targetLoc)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	d, annotator, output, err := readTaxonomyInputs(e)
	if err != nil {
		return err
	}
	if err := annotator.Annotate(ctx, d, query, target); err != nil {
		return err
	}
	return d.WriteFile(output)
}

func runTaxaCounts(ctx context.Context, e *env, args []string) error {
	addTaxonomyInputs(e)
	if err := e.parse(args); err != nil {
		return err
	}

	d, annotator, output, err := readTaxonomyInputs(e)
	if err != nil {
		return err
	}
	counts, err := annotator.CountByLevel(ctx, d)
	if err != nil {
		return err
	}
	return taxonomy.WriteTaxaCountsFile(output, counts)
}
