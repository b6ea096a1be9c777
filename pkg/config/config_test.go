package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1.0, cfg.PAEPower())
	assert.Equal(t, 5.0, cfg.PAECutoff())
	assert.Equal(t, 1.0, cfg.GraphResolution())
	assert.Equal(t, 50, cfg.MinDomainLength())
	assert.Equal(t, 60.0, cfg.MinDomainPLDDT())
	assert.Equal(t, 20, cfg.SmoothN())
	assert.Equal(t, 5.0, cfg.SmoothThreshold())
	assert.Equal(t, 1.0, cfg.BlockReplace())
	assert.Equal(t, 0.5, cfg.LinkageThreshold())
	assert.Equal(t, time.Duration(0), cfg.LinkageTimeout())
	assert.GreaterOrEqual(t, cfg.NumWorkers(), 1)
	assert.Equal(t, DefaultTaxonomyLevels, cfg.TaxonomyLevels())
	assert.Equal(t, "__", cfg.TaxonomyDelimiter())
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestSetOverridesDefaults(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("domains.smooth_n", 0)
	cfg.Set("linkage.num_workers", -3)
	cfg.Set("taxonomy.levels", "phylum,genus")

	assert.Equal(t, 0, cfg.SmoothN())
	assert.Equal(t, 1, cfg.NumWorkers(), "non-positive worker counts fall back to one")
	assert.Equal(t, []string{"phylum", "genus"}, cfg.TaxonomyLevels())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sat.yaml")
	content := "domains:\n  pae_cutoff: 7.5\n  min_domain_length: 30\nlinkage:\n  threshold: 0.8\n  timeout: 2m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 7.5, cfg.PAECutoff())
	assert.Equal(t, 30, cfg.MinDomainLength())
	assert.Equal(t, 0.8, cfg.LinkageThreshold())
	assert.Equal(t, 2*time.Minute, cfg.LinkageTimeout())
	assert.Equal(t, 1.0, cfg.PAEPower(), "unset keys keep their defaults")
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := NewConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SAT_DOMAINS_GRAPH_RESOLUTION", "0.5")
	cfg := NewConfig()
	assert.Equal(t, 0.5, cfg.GraphResolution())
}

func TestBindFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("min-domain-length", 50, "")
	require.NoError(t, fs.Parse([]string{"--min-domain-length", "12"}))

	cfg := NewConfig()
	require.NoError(t, cfg.BindFlag("domains.min_domain_length", fs.Lookup("min-domain-length")))
	assert.Equal(t, 12, cfg.MinDomainLength())

	assert.Error(t, cfg.BindFlag("domains.pae_power", fs.Lookup("absent")))
}

func TestCreateLoggerLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("logging.level", "warn")
	logger := cfg.CreateLogger("test")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	cfg.Set("logging.level", "not-a-level")
	logger = cfg.CreateLogger("test")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
