package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// ProjectConfigName is the per-directory configuration file.
const ProjectConfigName = ".skillscope.yaml"

// Config represents the complete skillscope configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Corpus  CorpusConfig  `yaml:"corpus" json:"corpus"`
	Scoring ScoringConfig `yaml:"scoring" json:"scoring"`
	Packer  PackerConfig  `yaml:"packer" json:"packer"`
	Scan    ScanConfig    `yaml:"scan" json:"scan"`
	Gaps    GapsConfig    `yaml:"gaps" json:"gaps"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Profiles are named project types selectable with retrieve --profile.
	Profiles map[string]ProfileConfig `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// ProfileConfig lists the documents a project type starts from. Ids are
// document ids ("frontend/nextjs-patterns") or library paths with the
// numbered category directory ("02-frontend/nextjs-patterns").
type ProfileConfig struct {
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Essential documents are packed ahead of everything else.
	Essential []string `yaml:"essential,omitempty" json:"essential,omitempty"`
	// Important documents are candidates with the profile prior.
	Important []string `yaml:"important,omitempty" json:"important,omitempty"`
	// Tags are added to the query as tag tokens.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// CorpusConfig locates the skill library.
type CorpusConfig struct {
	// Path is the root of the skill library. Empty means the working directory.
	Path    string   `yaml:"path" json:"path"`
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ScoringConfig holds the relevance weights. The defaults are uncalibrated
// starting points and are expected to be tuned per library.
type ScoringConfig struct {
	TagWeight     float64 `yaml:"tag_weight" json:"tag_weight"`
	TermWeight    float64 `yaml:"term_weight" json:"term_weight"`
	CategoryPrior float64 `yaml:"category_prior" json:"category_prior"`
	// ProfilePrior is the bonus for a document the selected profile lists.
	ProfilePrior float64 `yaml:"profile_prior" json:"profile_prior"`
	// Workers bounds per-document scoring parallelism. 0 means one per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// PackerConfig configures context pack assembly.
type PackerConfig struct {
	DefaultBudget int  `yaml:"default_budget" json:"default_budget"`
	Diversity     bool `yaml:"diversity" json:"diversity"`
	// DensityMargin is how much denser (score per token) a candidate must be
	// before it displaces a same-category document during the diversity pass.
	DensityMargin float64 `yaml:"density_margin" json:"density_margin"`
}

// ScanConfig bounds the repository walk.
type ScanConfig struct {
	MaxDepth       int      `yaml:"max_depth" json:"max_depth"`
	MaxFiles       int      `yaml:"max_files" json:"max_files"`
	MaxFileSize    int64    `yaml:"max_file_size" json:"max_file_size"`
	SampleBytes    int      `yaml:"sample_bytes" json:"sample_bytes"`
	Timeout        string   `yaml:"timeout" json:"timeout"`
	Workers        int      `yaml:"workers" json:"workers"`
	Exclude        []string `yaml:"exclude" json:"exclude"`
	FollowSymlinks bool     `yaml:"follow_symlinks" json:"follow_symlinks"`

	// RespectGitignore skips paths ignored by the repository's .gitignore files.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`
}

// GapsConfig sets the coverage threshold for gap detection.
type GapsConfig struct {
	MinTagMatches         int     `yaml:"min_tag_matches" json:"min_tag_matches"`
	MinTermMatches        int     `yaml:"min_term_matches" json:"min_term_matches"`
	MinConfidence         float64 `yaml:"min_confidence" json:"min_confidence"`
	MaxSuggestionDistance int     `yaml:"max_suggestion_distance" json:"max_suggestion_distance"`
}

// CacheConfig controls the on-disk index cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"`
}

// WatchConfig configures analyze-gaps --watch.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

var defaultScanExclude = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.next/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Include: []string{"**/SKILL.md", "**/*.md"},
			Exclude: []string{"**/README.md", "**/CHANGELOG.md", "**/GAP_REPORT.md", "**/.git/**", "**/node_modules/**"},
		},
		Scoring: ScoringConfig{
			TagWeight:     2.0,
			TermWeight:    1.0,
			CategoryPrior: 0.1,
			ProfilePrior:  0.5,
		},
		Packer: PackerConfig{
			DefaultBudget: 8000,
			Diversity:     true,
			DensityMargin: 1.25,
		},
		Scan: ScanConfig{
			MaxDepth:    12,
			MaxFiles:    20000,
			MaxFileSize: 1 << 20,
			SampleBytes: 16 << 10,
			Timeout:     "30s",
			Exclude:     append([]string(nil), defaultScanExclude...),

			RespectGitignore: true,
		},
		Gaps: GapsConfig{
			MinTagMatches:         1,
			MinTermMatches:        2,
			MaxSuggestionDistance: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     defaultCacheDir(),
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".skillscope", "cache")
	}
	return filepath.Join(home, ".skillscope", "cache")
}

// GetUserConfigPath returns the user-level config path.
// Respects XDG_CONFIG_HOME, falling back to ~/.config/skillscope/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "skillscope", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "skillscope", "config.yaml")
	}
	return filepath.Join(home, ".config", "skillscope", "config.yaml")
}

// Load builds the effective configuration.
//
// Precedence, lowest first: defaults, user config, project config (dir/.skillscope.yaml
// or explicitPath when set), SKILLSCOPE_* environment variables.
func Load(dir, explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	projectPath := explicitPath
	if projectPath == "" {
		projectPath = filepath.Join(dir, ProjectConfigName)
		if !fileExists(projectPath) {
			projectPath = ""
		}
	} else if !fileExists(projectPath) {
		return nil, serrors.New(serrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file not found: %s", projectPath), nil).
			WithDetail("path", projectPath)
	}
	if projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values. Fields absent from the
// file keep whatever value they already had.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err).
			WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKILLSCOPE_CORPUS"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("SKILLSCOPE_TAG_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Scoring.TagWeight = w
		}
	}
	if v := os.Getenv("SKILLSCOPE_TERM_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Scoring.TermWeight = w
		}
	}
	if v := os.Getenv("SKILLSCOPE_CATEGORY_PRIOR"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 {
			c.Scoring.CategoryPrior = w
		}
	}
	if v := os.Getenv("SKILLSCOPE_BUDGET"); v != "" {
		if b, err := strconv.Atoi(v); err == nil && b > 0 {
			c.Packer.DefaultBudget = b
		}
	}
	if v := os.Getenv("SKILLSCOPE_SCAN_TIMEOUT"); v != "" {
		c.Scan.Timeout = v
	}
	if v := os.Getenv("SKILLSCOPE_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("SKILLSCOPE_NO_CACHE"); v != "" {
		c.Cache.Enabled = !(strings.EqualFold(v, "true") || v == "1")
	}
	if v := os.Getenv("SKILLSCOPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ScanTimeout returns the parsed scan timeout. Zero disables the timeout.
func (c *Config) ScanTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scan.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// WatchDebounce returns the parsed watch debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate returns a config error describing the first invalid field.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return serrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Scoring.TagWeight < 0 {
		return invalid("scoring.tag_weight must be non-negative, got %g", c.Scoring.TagWeight)
	}
	if c.Scoring.TermWeight < 0 {
		return invalid("scoring.term_weight must be non-negative, got %g", c.Scoring.TermWeight)
	}
	if c.Scoring.CategoryPrior < 0 {
		return invalid("scoring.category_prior must be non-negative, got %g", c.Scoring.CategoryPrior)
	}
	if c.Scoring.ProfilePrior < 0 {
		return invalid("scoring.profile_prior must be non-negative, got %g", c.Scoring.ProfilePrior)
	}
	if c.Scoring.Workers < 0 {
		return invalid("scoring.workers must be non-negative, got %d", c.Scoring.Workers)
	}
	if c.Packer.DefaultBudget <= 0 {
		return invalid("packer.default_budget must be positive, got %d", c.Packer.DefaultBudget)
	}
	if c.Packer.DensityMargin < 1 {
		return invalid("packer.density_margin must be at least 1.0, got %g", c.Packer.DensityMargin)
	}
	if c.Scan.MaxDepth <= 0 {
		return invalid("scan.max_depth must be positive, got %d", c.Scan.MaxDepth)
	}
	if c.Scan.MaxFiles <= 0 {
		return invalid("scan.max_files must be positive, got %d", c.Scan.MaxFiles)
	}
	if c.Scan.MaxFileSize <= 0 {
		return invalid("scan.max_file_size must be positive, got %d", c.Scan.MaxFileSize)
	}
	if c.Scan.SampleBytes <= 0 {
		return invalid("scan.sample_bytes must be positive, got %d", c.Scan.SampleBytes)
	}
	if c.Scan.Workers < 0 {
		return invalid("scan.workers must be non-negative, got %d", c.Scan.Workers)
	}
	if c.Scan.Timeout != "" {
		if d, err := time.ParseDuration(c.Scan.Timeout); err != nil || d < 0 {
			return invalid("scan.timeout must be a non-negative duration, got %q", c.Scan.Timeout)
		}
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return invalid("watch.debounce must be a duration, got %q", c.Watch.Debounce)
		}
	}
	if c.Gaps.MinTagMatches < 0 || c.Gaps.MinTermMatches < 0 {
		return invalid("gaps thresholds must be non-negative")
	}
	if c.Gaps.MinTagMatches == 0 && c.Gaps.MinTermMatches == 0 {
		return invalid("gaps.min_tag_matches and gaps.min_term_matches cannot both be zero")
	}
	if c.Gaps.MinConfidence < 0 || c.Gaps.MinConfidence > 1 {
		return invalid("gaps.min_confidence must be between 0 and 1, got %g", c.Gaps.MinConfidence)
	}
	if c.Gaps.MaxSuggestionDistance < 0 {
		return invalid("gaps.max_suggestion_distance must be non-negative, got %d", c.Gaps.MaxSuggestionDistance)
	}

	for name, p := range c.Profiles {
		if strings.TrimSpace(name) == "" {
			return invalid("profiles: profile name must not be empty")
		}
		if len(p.Essential) == 0 && len(p.Important) == 0 && len(p.Tags) == 0 {
			return invalid("profiles.%s lists no essential, important or tags entries", name)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// Profile returns the named profile. Names are matched case-insensitively.
func (c *Config) Profile(name string) (ProfileConfig, bool) {
	if p, ok := c.Profiles[name]; ok {
		return p, true
	}
	for n, p := range c.Profiles {
		if strings.EqualFold(n, name) {
			return p, true
		}
	}
	return ProfileConfig{}, false
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
