package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceVariables_SubstitutesInTextFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")
	require.NoError(t, os.WriteFile(path, []byte("max-players={{max_players}}\nmotd={{motd}}\n"), 0o644))

	err := ReplaceVariables(dir, map[string]string{"max_players": "20", "motd": "hello"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "max-players=20\nmotd=hello\n", string(data))
}

func TestReplaceVariables_SkipsJarFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.jar")
	original := []byte("binary {{should_not_change}} content")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	err := ReplaceVariables(dir, map[string]string{"should_not_change": "changed"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestReplaceVariables_WalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "plugins", "config")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(nested, "plugin.yml")
	require.NoError(t, os.WriteFile(path, []byte("world={{world}}"), 0o644))

	err := ReplaceVariables(dir, map[string]string{"world": "overworld"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "world=overworld", string(data))
}

func TestReplaceVariables_NoPlaceholdersLeavesFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("nothing to replace"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)
	originalModTime := info.ModTime()

	err = ReplaceVariables(dir, map[string]string{"unused": "value"})
	require.NoError(t, err)

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, originalModTime, info.ModTime())
}

func TestSubstitute(t *testing.T) {
	result := substitute("{{a}}-{{b}}-{{a}}", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "1-2-1", result)
}
