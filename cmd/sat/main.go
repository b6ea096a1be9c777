// Command sat runs the structural annotation toolkit: domain finding,
// supercluster resolution and alignment post-processing.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/config"
)

type command struct {
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"get-domains":       {"Split a predicted structure into domains from its PAE matrix", runGetDomains},
	"superclusters":     {"Link clusters whose members align and write superclusters", runSuperclusters},
	"merge-clusters":    {"Merge clusters connected by any single alignment", runMergeClusters},
	"filter-alignments": {"Keep alignments within a score range or the top N per query", runFilterAlignments},
	"add-clusters":      {"Label alignments with cluster id, count and top query", runAddClusters},
	"add-taxonomy":      {"Add query and target lineage columns to alignments", runAddTaxonomy},
	"taxa-counts":       {"Count taxa per cluster and level in labelled alignments", runTaxaCounts},
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return fmt.Errorf("no command given")
		}
		return pflag.ErrHelp
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, newEnv(args[0], stderr), args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: sat <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, commands[name].summary)
	}
}

// env carries the per-command flag set, configuration and logger.
type env struct {
	name     string
	fs       *pflag.FlagSet
	cfg      *config.Config
	logger   zerolog.Logger
	bindings map[string]string // config key -> flag name
}

func newEnv(name string, stderr io.Writer) *env {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := config.NewConfig()
	fs.String("config", "", "configuration file (yaml, json or toml)")
	fs.String("log-level", cfg.LogLevel(), "log level")
	fs.Bool("progress", cfg.EnableProgress(), "log progress of long running steps")

	return &env{
		name: name,
		fs:   fs,
		cfg:  cfg,
		bindings: map[string]string{
			"logging.level":           "log-level",
			"logging.enable_progress": "progress",
		},
	}
}

// bind registers a flag as the command line source of a configuration key.
func (e *env) bind(key, flag string) { e.bindings[key] = flag }

// parse parses args, loads the configuration file and binds flags. The
// global logger is replaced by the configured one.
func (e *env) parse(args []string) error {
	if err := e.fs.Parse(args); err != nil {
		return err
	}

	if path, _ := e.fs.GetString("config"); path != "" {
		if err := e.cfg.LoadFromFile(path); err != nil {
			return err
		}
	}
	for key, name := range e.bindings {
		if err := e.cfg.BindFlag(key, e.fs.Lookup(name)); err != nil {
			return err
		}
	}

	e.logger = e.cfg.CreateLogger("sat").With().Str("command", e.name).Logger()
	log.Logger = e.logger
	return nil
}

// required returns the values of string flags that must be set.
func (e *env) required(names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		v, err := e.fs.GetString(name)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("--%s is required", name)
		}
		values[i] = v
	}
	return values, nil
}
