// Package state implements the durable instance-state document: a single
// JSON object mapping instance id to its deployment record, persisted at
// <root>/storage/states.json (spec §3 "State Document", §4.2).
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Status is one of the lifecycle states a record can hold.
type Status string

const (
	StatusInstalling Status = "INSTALLING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Record is the persisted subset of an Instance (spec §3). Field names
// match the on-disk wire layout (spec §6), which is camelCase even though
// the rest of the data model uses snake_case.
type Record struct {
	State        Status `json:"state"`
	ContainerID  string `json:"containerId,omitempty"`
	DiskLimitMiB int64  `json:"diskLimit"`
}

// Document is the full state store serialized as a single JSON object.
type Document map[string]Record

// Store is a process-wide, mutex-serialized read-modify-write document on
// disk (spec §4.2 "all updates must be serialized"). One Store is shared by
// every deployment and session in the process.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by path. The file is not created until the
// first Read or Update.
func New(path string) *Store {
	return &Store{path: path}
}

// Read returns the full document, creating it with an empty object if the
// file does not yet exist on disk (spec §4.2 "read() ... creates the
// document with an empty object if absent").
func (s *Store) Read() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read %s: %w", s.path, err)
	}

	doc := Document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("state: parse %s: %w", s.path, err)
		}
	}
	return doc, nil
}

// Update replaces the record for instanceID wholesale (not merged) with rec
// and persists the full document atomically (spec §4.2 "update(...) ...
// replaced wholesale").
func (s *Store) Update(instanceID string, rec Record) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	doc[instanceID] = rec
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the record for instanceID, if present, and persists the
// result. Used by the delete pipeline (C4) to drop a record once its
// container and volume are gone.
func (s *Store) Delete(instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc[instanceID]; !ok {
		return nil
	}

	delete(doc, instanceID)
	return s.write(doc)
}

// Get reads the record for one instance (spec §4.5 GET /state/:volume_id).
// The second return value is false if no record exists.
func (s *Store) Get(instanceID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := doc[instanceID]
	return rec, ok, nil
}

// write serializes doc and atomically replaces the document file via
// write-then-rename, so a crash mid-write never leaves an unparseable file
// on disk (spec §4.2 invariant), grounded on the teacher corpus's atomic
// file writer idiom (go.podman.io/storage/pkg/ioutils.AtomicFileWriter).
func (s *Store) write(doc Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".states-*.json.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("state: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("state: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("state: rename into place: %w", err)
	}
	return nil
}
