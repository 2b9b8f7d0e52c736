package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"splice.dev/pkg/splice/internal/domain"
)

// writtenConfig is the part of splice.yaml the init command is expected to seed.
type writtenConfig struct {
	Version int `yaml:"version"`
	Build   struct {
		MaxCycles int `yaml:"max_cycles"`
	} `yaml:"build"`
	Sandbox struct {
		Command []string `yaml:"command"`
	} `yaml:"sandbox"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
}

func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	return dir
}

func TestInitCmd_WritesSpliceDefaults(t *testing.T) {
	dir := chdirTemp(t)

	out := &bytes.Buffer{}
	cmd := newTestRoot(newInitCmd(), "init")
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Wrote splice.yaml")

	contents, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)

	var cfg writtenConfig
	require.NoError(t, yaml.Unmarshal(contents, &cfg))

	assert.Equal(t, currentConfigVersion, cfg.Version)
	assert.Equal(t, domain.DefaultMaxCycles, cfg.Build.MaxCycles)
	assert.Equal(t, []string{"deno", "run", "--allow-all"}, cfg.Sandbox.Command)
	assert.Equal(t, defaultJournalPath, cfg.Journal.Path)
	assert.Contains(t, string(contents), "max_cycles: 10000")
}

func TestInitCmd_KeepsExistingFile(t *testing.T) {
	dir := chdirTemp(t)

	targetPath := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(targetPath, []byte("build:\n  max_cycles: 3\n"), 0o644))

	cmd := newTestRoot(newInitCmd(), "init")
	require.Error(t, cmd.Execute())

	contents, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, "build:\n  max_cycles: 3\n", string(contents))
}
