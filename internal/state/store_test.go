package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Read_CreatesEmptyDocumentWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	doc, err := s.Read()
	require.NoError(t, err)
	assert.Empty(t, doc)

	// The file itself is not created by Read, only by Update.
	_, statErr := os.Stat(filepath.Join(dir, "states.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_Update_PersistsRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.json")
	s := New(path)

	doc, err := s.Update("inst-1", Record{State: StatusInstalling, DiskLimitMiB: 1024})
	require.NoError(t, err)
	assert.Equal(t, StatusInstalling, doc["inst-1"].State)

	// Surviving a fresh Store over the same path proves it hit disk.
	reopened := New(path)
	reread, err := reopened.Read()
	require.NoError(t, err)
	assert.Equal(t, StatusInstalling, reread["inst-1"].State)
	assert.Equal(t, int64(1024), reread["inst-1"].DiskLimitMiB)
}

func TestStore_Update_ReplacesWholesale(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	_, err := s.Update("inst-1", Record{State: StatusInstalling, DiskLimitMiB: 1024})
	require.NoError(t, err)

	doc, err := s.Update("inst-1", Record{State: StatusReady, ContainerID: "abc123"})
	require.NoError(t, err)

	// DiskLimitMiB from the first write must NOT survive - whole-record replace.
	assert.Equal(t, StatusReady, doc["inst-1"].State)
	assert.Equal(t, "abc123", doc["inst-1"].ContainerID)
	assert.Equal(t, int64(0), doc["inst-1"].DiskLimitMiB)
}

func TestStore_Update_MultipleInstances(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	_, err := s.Update("inst-1", Record{State: StatusReady})
	require.NoError(t, err)
	doc, err := s.Update("inst-2", Record{State: StatusInstalling})
	require.NoError(t, err)

	assert.Len(t, doc, 2)
	assert.Equal(t, StatusReady, doc["inst-1"].State)
	assert.Equal(t, StatusInstalling, doc["inst-2"].State)
}

func TestStore_Get(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Update("inst-1", Record{State: StatusReady, ContainerID: "c1"})
	require.NoError(t, err)

	rec, ok, err := s.Get("inst-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", rec.ContainerID)
}

func TestStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	_, err := s.Update("inst-1", Record{State: StatusReady})
	require.NoError(t, err)

	require.NoError(t, s.Delete("inst-1"))

	_, ok, err := s.Get("inst-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete_MissingInstanceIsNoop(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))
	assert.NoError(t, s.Delete("never-existed"))
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "storage", "states.json")
	s := New(path)

	_, err := s.Update("inst-1", Record{State: StatusReady})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStore_NoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	_, err := s.Update("inst-1", Record{State: StatusReady})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "states.json", entries[0].Name())
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "states.json"))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.Update("shared", Record{State: StatusReady, DiskLimitMiB: int64(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := s.Read()
	require.NoError(t, err)
	_, ok := doc["shared"]
	assert.True(t, ok)
}
