package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config is given
const DefaultFile = "jarscope.yaml"

var (
	OutputFormats = []string{"cli", "json", "yaml", "tui"}
	HashAlgos     = []string{"sha256", "blake3"}
	LogLevels     = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Diff     DiffConfig     `yaml:"diff"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Log      LogConfig      `yaml:"log"`
}

type OutputConfig struct {
	Format      string `yaml:"format"`
	SampleCalls int    `yaml:"sample_calls"`
	HashLength  int    `yaml:"hash_length"` // digest characters shown in reports
}

type AnalysisConfig struct {
	Bidirectional    bool `yaml:"bidirectional"`
	SkipInnerClasses bool `yaml:"skip_inner_classes"`
	Parallel         bool `yaml:"parallel"`
}

type DiffConfig struct {
	Hash     string `yaml:"hash"`
	Parallel bool   `yaml:"parallel"`
}

type Neo4jConfig struct {
	URI       string `yaml:"uri"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	BatchSize int    `yaml:"batch_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format:      "cli",
			SampleCalls: 25,
			HashLength:  16,
		},
		Analysis: AnalysisConfig{
			Bidirectional: true,
			Parallel:      true,
		},
		Diff: DiffConfig{
			Hash:     "sha256",
			Parallel: true,
		},
		Neo4j: Neo4jConfig{
			URI:       "neo4j://localhost:7687",
			User:      "neo4j",
			Database:  "neo4j",
			BatchSize: 500,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides (a .env file in the working directory is honoured). An empty path
// tries DefaultFile and tolerates its absence.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("JARSCOPE_OUTPUT", &c.Output.Format)
	str("JARSCOPE_HASH", &c.Diff.Hash)
	str("JARSCOPE_LOG_LEVEL", &c.Log.Level)
	str("JARSCOPE_NEO4J_URI", &c.Neo4j.URI)
	str("JARSCOPE_NEO4J_USER", &c.Neo4j.User)
	str("JARSCOPE_NEO4J_PASSWORD", &c.Neo4j.Password)
	str("JARSCOPE_NEO4J_DATABASE", &c.Neo4j.Database)

	if v, ok := lookup("JARSCOPE_SAMPLE_CALLS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JARSCOPE_SAMPLE_CALLS: %w", err)
		}
		c.Output.SampleCalls = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(OutputFormats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format %q must be one of %s", c.Output.Format, strings.Join(OutputFormats, ", ")))
	}
	if !slices.Contains(HashAlgos, c.Diff.Hash) {
		errs = append(errs, fmt.Errorf("diff.hash %q must be one of %s", c.Diff.Hash, strings.Join(HashAlgos, ", ")))
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %s", c.Log.Level, strings.Join(LogLevels, ", ")))
	}
	if c.Output.SampleCalls < 0 {
		errs = append(errs, fmt.Errorf("output.sample_calls must not be negative"))
	}
	if c.Neo4j.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("neo4j.batch_size must be positive"))
	}
	return errors.Join(errs...)
}
