package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// isolate points the user config lookup at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 2.0, cfg.Scoring.TagWeight)
	assert.Equal(t, 1.0, cfg.Scoring.TermWeight)
	assert.Equal(t, 0.1, cfg.Scoring.CategoryPrior)
	assert.Equal(t, 8000, cfg.Packer.DefaultBudget)
	assert.True(t, cfg.Packer.Diversity)
	assert.Equal(t, 12, cfg.Scan.MaxDepth)
	assert.Equal(t, int64(1<<20), cfg.Scan.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.ScanTimeout())
	assert.Equal(t, 1, cfg.Gaps.MinTagMatches)
	assert.Equal(t, 2, cfg.Gaps.MinTermMatches)
	assert.Contains(t, cfg.Scan.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Scan.Exclude, "**/vendor/**")
	assert.True(t, cfg.Cache.Enabled)
	assert.Contains(t, cfg.Cache.Dir, ".skillscope")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir(), "")

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Scoring, cfg.Scoring)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: a user config and a project config that both set tag_weight
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	userPath := filepath.Join(xdg, "skillscope", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0755))
	require.NoError(t, os.WriteFile(userPath, []byte("scoring:\n  tag_weight: 3.0\n  category_prior: 0.5\n"), 0644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("scoring:\n  tag_weight: 4.0\n"), 0644))

	// When: loading
	cfg, err := Load(dir, "")

	// Then: project wins, user-only fields survive, untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.Scoring.TagWeight)
	assert.Equal(t, 0.5, cfg.Scoring.CategoryPrior)
	assert.Equal(t, 1.0, cfg.Scoring.TermWeight)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("packer:\n  default_budget: 500\n"), 0644))
	t.Setenv("SKILLSCOPE_BUDGET", "1200")
	t.Setenv("SKILLSCOPE_TAG_WEIGHT", "2.5")
	t.Setenv("SKILLSCOPE_NO_CACHE", "1")

	cfg, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Packer.DefaultBudget)
	assert.Equal(t, 2.5, cfg.Scoring.TagWeight)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_ExplicitPathMissing_ReturnsConfigNotFound(t *testing.T) {
	isolate(t)

	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, serrors.ErrCodeConfigNotFound, serrors.GetCode(err))
	assert.Equal(t, serrors.ExitInvalid, serrors.ExitCode(err))
}

func TestLoad_MalformedYAML_ReturnsConfigError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("scoring: [unclosed"), 0644))

	_, err := Load(dir, "")

	require.Error(t, err)
	assert.Equal(t, serrors.CategoryConfig, serrors.GetCategory(err))
}

func TestValidate_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative tag weight", func(c *Config) { c.Scoring.TagWeight = -1 }},
		{"negative term weight", func(c *Config) { c.Scoring.TermWeight = -0.5 }},
		{"zero budget", func(c *Config) { c.Packer.DefaultBudget = 0 }},
		{"density margin below one", func(c *Config) { c.Packer.DensityMargin = 0.5 }},
		{"zero depth", func(c *Config) { c.Scan.MaxDepth = 0 }},
		{"bad timeout", func(c *Config) { c.Scan.Timeout = "soon" }},
		{"both thresholds zero", func(c *Config) { c.Gaps.MinTagMatches, c.Gaps.MinTermMatches = 0, 0 }},
		{"confidence above one", func(c *Config) { c.Gaps.MinConfidence = 1.5 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"negative profile prior", func(c *Config) { c.Scoring.ProfilePrior = -1 }},
		{"empty profile", func(c *Config) { c.Profiles = map[string]ProfileConfig{"saas": {Description: "nothing listed"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, serrors.ErrCodeConfigInvalid, serrors.GetCode(err))
		})
	}
}

func TestLoad_ProfilesFromProjectConfig(t *testing.T) {
	isolate(t)

	// Given: a project config defining a profile
	dir := t.TempDir()
	yml := "profiles:\n  saas:\n    essential: [02-frontend/nextjs-patterns]\n    important: [billing/stripe-integration]\n    tags: [stripe]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(yml), 0644))

	// When: the configuration is loaded
	cfg, err := Load(dir, "")

	// Then: the profile is available by name, case-insensitively
	require.NoError(t, err)
	p, ok := cfg.Profile("SaaS")
	require.True(t, ok)
	assert.Equal(t, []string{"02-frontend/nextjs-patterns"}, p.Essential)
	assert.Equal(t, []string{"billing/stripe-integration"}, p.Important)
	assert.Equal(t, []string{"stripe"}, p.Tags)
	assert.Equal(t, []string{"saas"}, cfg.ProfileNames())
	_, ok = cfg.Profile("mobile")
	assert.False(t, ok)
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Scoring.CategoryPrior = 0.3
	cfg.Scan.Exclude = []string{"**/tmp/**"}

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))
	loaded, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, 0.3, loaded.Scoring.CategoryPrior)
	assert.Equal(t, []string{"**/tmp/**"}, loaded.Scan.Exclude)
}

func TestBackupFile_KeepsNewestBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Given: no file yet
	got, err := BackupFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	// When: backing up more times than MaxBackups
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))
	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupFile(path)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only MaxBackups remain
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}
