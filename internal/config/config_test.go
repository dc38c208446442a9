package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("nope.yaml")
	require.NoError(t, err)
	assert.Equal(t, "output", cfg.Storage.Prefix)
	assert.Equal(t, "incoming/", cfg.Storage.IncomingPrefix)
	assert.Equal(t, prompt.DefaultLocalPaths, cfg.Template.Paths)
	assert.Equal(t, "gemini-1.5-pro", cfg.Vertex.Model)
	assert.Equal(t, 120*time.Second, cfg.Summary().ModelTimeout)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "underwriting.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  bucket: apps
  prefix: summaries
template:
  paths: [prompts/uw.txt]
vertex:
  project_id: from-file
  timeout_secs: 30
`), 0o644))
	t.Setenv("PROJECT_ID", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "apps", cfg.Storage.Bucket)
	assert.Equal(t, "summaries", cfg.Storage.Prefix)
	assert.Equal(t, []string{"prompts/uw.txt"}, cfg.Template.Paths)
	assert.Equal(t, "from-env", cfg.Vertex.ProjectID)

	sc := cfg.Summary()
	assert.Equal(t, "apps", sc.TemplateBucket)
	assert.Equal(t, 30*time.Second, sc.ModelTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MODEL_NAME=gemini-test\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MODEL_NAME") })

	cfg, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Vertex.Model)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
