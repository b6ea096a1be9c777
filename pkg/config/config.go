package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultTaxonomyLevels are the ranks reported when no levels are configured
var DefaultTaxonomyLevels = []string{
	"superkingdom", "phylum", "class", "order", "family", "genus", "species",
}

// Config manages toolkit configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Domain parameters
	v.SetDefault("domains.pae_power", 1.0)
	v.SetDefault("domains.pae_cutoff", 5.0)
	v.SetDefault("domains.graph_resolution", 1.0)
	v.SetDefault("domains.min_domain_length", 50)
	v.SetDefault("domains.min_domain_plddt", 60.0)
	v.SetDefault("domains.smooth_n", 20)
	v.SetDefault("domains.smooth_threshold", 5.0)
	v.SetDefault("domains.block_replace", 1.0)

	// Linkage parameters
	v.SetDefault("linkage.threshold", 0.5)
	v.SetDefault("linkage.num_workers", runtime.NumCPU())
	v.SetDefault("linkage.timeout", time.Duration(0))

	// Taxonomy parameters
	v.SetDefault("taxonomy.levels", DefaultTaxonomyLevels)
	v.SetDefault("taxonomy.delimiter", "__")

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	v.SetEnvPrefix("SAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// BindFlag binds a command line flag to a configuration key. Flags that were
// not set on the command line fall through to file, env and default values.
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for key %s", key)
	}
	return c.v.BindPFlag(key, flag)
}

// Getters for domain parameters
func (c *Config) PAEPower() float64        { return c.v.GetFloat64("domains.pae_power") }
func (c *Config) PAECutoff() float64       { return c.v.GetFloat64("domains.pae_cutoff") }
func (c *Config) GraphResolution() float64 { return c.v.GetFloat64("domains.graph_resolution") }
func (c *Config) MinDomainLength() int     { return c.v.GetInt("domains.min_domain_length") }
func (c *Config) MinDomainPLDDT() float64  { return c.v.GetFloat64("domains.min_domain_plddt") }
func (c *Config) SmoothN() int             { return c.v.GetInt("domains.smooth_n") }
func (c *Config) SmoothThreshold() float64 { return c.v.GetFloat64("domains.smooth_threshold") }
func (c *Config) BlockReplace() float64    { return c.v.GetFloat64("domains.block_replace") }

// Getters for linkage parameters
func (c *Config) LinkageThreshold() float64    { return c.v.GetFloat64("linkage.threshold") }
func (c *Config) LinkageTimeout() time.Duration { return c.v.GetDuration("linkage.timeout") }

// NumWorkers never returns less than one.
func (c *Config) NumWorkers() int {
	if n := c.v.GetInt("linkage.num_workers"); n > 0 {
		return n
	}
	return 1
}

func (c *Config) TaxonomyLevels() []string {
	levels := c.v.GetStringSlice("taxonomy.levels")
	// Env vars and flags arrive as a single comma separated string
	if len(levels) == 1 && strings.Contains(levels[0], ",") {
		levels = strings.Split(levels[0], ",")
	}
	return levels
}

func (c *Config) TaxonomyDelimiter() string { return c.v.GetString("taxonomy.delimiter") }

func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger(service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", service).Logger()
}
