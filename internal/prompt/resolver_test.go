package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
)

const customTemplate = "Extract this:\n" + Placeholder + "\nas JSON."

func TestResolver_LocalFileWins(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "tmpl.txt")
	require.NoError(t, os.WriteFile(local, []byte(customTemplate), 0o644))

	store := blob.NewDirStore(t.TempDir())
	require.NoError(t, store.Write(context.Background(), DefaultObjectKey, []byte("object "+Placeholder)))

	got := NewResolver(store, ResolverConfig{LocalPaths: []string{local}}, nil).Resolve(context.Background())
	assert.Equal(t, customTemplate, got.Text)
	assert.Equal(t, "file:"+local, got.Source)
}

func TestResolver_ObjectStoreSecond(t *testing.T) {
	store := blob.NewDirStore(t.TempDir())
	require.NoError(t, store.Write(context.Background(), DefaultObjectKey, []byte("object "+Placeholder)))

	r := NewResolver(store, ResolverConfig{LocalPaths: []string{filepath.Join(t.TempDir(), "missing.txt")}}, nil)
	got := r.Resolve(context.Background())
	assert.Equal(t, "object "+Placeholder, got.Text)
	assert.True(t, strings.HasPrefix(got.Source, "object:"))
}

func TestResolver_BuiltinWhenAllTiersFail(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	noPlaceholder := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	require.NoError(t, os.WriteFile(noPlaceholder, []byte("no token here"), 0o644))

	r := NewResolver(blob.NewDirStore(t.TempDir()), ResolverConfig{LocalPaths: []string{empty, noPlaceholder}}, nil)
	got := r.Resolve(context.Background())

	assert.Equal(t, BuiltinTemplate, got.Text)
	assert.Equal(t, SourceBuiltin, got.Source)
	assert.NotEmpty(t, got.Text)
	assert.Contains(t, got.Text, Placeholder)
}

func TestResolver_NilStoreSkipsObjectTier(t *testing.T) {
	got := NewResolver(nil, ResolverConfig{LocalPaths: []string{}}, nil).Resolve(context.Background())
	assert.Equal(t, SourceBuiltin, got.Source)
}

func TestTemplate_Fill(t *testing.T) {
	tmpl := Template{Text: "a " + Placeholder + " b " + Placeholder}
	assert.Equal(t, "a X b X", tmpl.Fill("X"))
	assert.Equal(t, "a  b ", tmpl.Fill(""))
}
