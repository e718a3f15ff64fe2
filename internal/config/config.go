package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultIndex is the index queries run against when none is configured.
const DefaultIndex = "ecommerce"

// Config holds the searchgate configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	OpenSearch OpenSearchConfig `yaml:"opensearch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"` // 0 = no limit, a hung backend hangs the request
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// OpenSearchConfig holds search backend connection settings.
type OpenSearchConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
	// VerifyCertificates enables TLS certificate validation. Off by default for
	// self-signed development clusters.
	VerifyCertificates bool `yaml:"verify_certificates"`
	// ReadinessTimeout makes startup wait for the backend; 0 skips the wait.
	ReadinessTimeout int `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML file path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references from the environment.
// Expansion happens on parsed scalar values, so substituted text is never read as YAML.
func Parse(data []byte) (Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	expandEnvVars(&root)

	var cfg Config
	if root.Kind != 0 {
		if err := root.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenSearch.Index == "" {
		c.OpenSearch.Index = DefaultIndex
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.WriteTimeoutSec < 0 {
		return fmt.Errorf("http.write_timeout_sec must not be negative, got %d", c.HTTP.WriteTimeoutSec)
	}
	if c.OpenSearch.URL == "" {
		return fmt.Errorf("opensearch.url is required")
	}
	u, err := url.Parse(c.OpenSearch.URL)
	if err != nil {
		return fmt.Errorf("opensearch.url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("opensearch.url must be an absolute http(s) URL, got %q", c.OpenSearch.URL)
	}
	if c.OpenSearch.Username == "" {
		return fmt.Errorf("opensearch.username is required")
	}
	if c.OpenSearch.Password == "" {
		return fmt.Errorf("opensearch.password is required")
	}
	if strings.ContainsAny(c.OpenSearch.Index, ",*") {
		return fmt.Errorf("opensearch.index must name a single index, got %q", c.OpenSearch.Index)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} in scalar values with
// environment variable values. An expanded plain scalar has its tag cleared so
// it resolves by content again (a port becomes an int), while quoted scalars stay strings.
func expandEnvVars(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && envVarRegex.MatchString(n.Value) {
		n.Value = envVarRegex.ReplaceAllStringFunc(n.Value, func(match string) string {
			expr := match[2 : len(match)-1] // strip ${ and }
			varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
			val := os.Getenv(varName)
			if val == "" && hasDefault {
				val = defaultVal
			}
			return val
		})
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle|yaml.TaggedStyle) == 0 {
			n.Tag = ""
		}
	}
	for _, c := range n.Content {
		expandEnvVars(c)
	}
}
