package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backendTemplate = `# Supabase
SUPABASE_URL=https://example.supabase.co
SUPABASE_ANON_KEY=
SUPABASE_SERVICE_ROLE_KEY=

REDIS_HOST=redis
REDIS_PORT=6379
OPENAI_API_KEY="sk-placeholder"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Materialize Tests
// =============================================================================

func TestMaterialize_FreshCopyIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "backend", ".env.example")
	target := filepath.Join(dir, "backend", ".env")
	writeFile(t, template, backendTemplate)

	written, err := Materialize(template, target, false)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, backendTemplate, string(got))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestMaterialize_Idempotent(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, ".env.example")
	target := filepath.Join(dir, ".env")
	writeFile(t, template, backendTemplate)

	written, err := Materialize(template, target, false)
	require.NoError(t, err)
	require.True(t, written)

	written, err = Materialize(template, target, false)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, backendTemplate, string(got))
}

func TestMaterialize_NeverOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, ".env.example")
	target := filepath.Join(dir, ".env")
	writeFile(t, template, backendTemplate)
	writeFile(t, target, "SUPABASE_URL=https://real.supabase.co\n")

	written, err := Materialize(template, target, false)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "SUPABASE_URL=https://real.supabase.co\n", string(got))
}

func TestMaterialize_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, ".env.example")
	target := filepath.Join(dir, ".env")
	writeFile(t, template, backendTemplate)
	writeFile(t, target, "OLD=1\n")

	written, err := Materialize(template, target, true)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, backendTemplate, string(got))
}

func TestMaterialize_CreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, ".env.example")
	target := filepath.Join(dir, "frontend", "nested", ".env.local")
	writeFile(t, template, "NEXT_PUBLIC_URL=http://localhost:3000\n")

	written, err := Materialize(template, target, false)
	require.NoError(t, err)
	assert.True(t, written)
	assert.FileExists(t, target)
}

func TestMaterialize_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".env")

	written, err := Materialize(filepath.Join(dir, "missing"), target, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateMissing)
	assert.False(t, written)
	assert.NoFileExists(t, target)
}

func TestMaterialize_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, ".env.example")
	writeFile(t, template, backendTemplate)
	target := filepath.Join(dir, ".env")
	require.NoError(t, os.Mkdir(target, 0o755))

	_, err := Materialize(template, target, false)
	assert.ErrorIs(t, err, ErrTargetIsDir)
}

func TestMaterialize_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "tpl")
	writeFile(t, template, "A=1\n")

	_, err := Materialize(template, filepath.Join(dir, "out", ".env"), false)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".env", entries[0].Name())
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, backendTemplate)

	values, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co", values["SUPABASE_URL"])
	assert.Equal(t, "", values["SUPABASE_ANON_KEY"])
	assert.Equal(t, "6379", values["REDIS_PORT"])
	assert.Equal(t, "sk-placeholder", values["OPENAI_API_KEY"])
}

func TestLoad_MissingFile(t *testing.T) {
	values, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.example")
	writeFile(t, path, backendTemplate)

	keys, err := Keys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"OPENAI_API_KEY", "REDIS_HOST", "REDIS_PORT",
		"SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_URL",
	}, keys)
}

func TestLoadAll_LaterWins(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, "X=1\nY=1\n")
	writeFile(t, b, "Y=2\n")

	values, err := LoadAll(a, b, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X": "1", "Y": "2"}, values)
}

func TestWriteIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".do", "app.yaml")

	written, err := WriteIfMissing(path, []byte("name: suna\n"), 0o644, false)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteIfMissing(path, []byte("name: other\n"), 0o644, false)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: suna\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	written, err = WriteIfMissing(path, []byte("name: other\n"), 0o644, true)
	require.NoError(t, err)
	assert.True(t, written)
}
