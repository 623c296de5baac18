// Package file provides a file-based persistence implementation used by tests
// and local development. Each collection is a directory of JSON documents; a
// single lock serializes access, which stands in for the row-level
// conditional updates the SQL implementation relies on.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	collectionWorkflows     = "workflows"
	collectionActions       = "workflow_actions"
	collectionRuns          = "workflow_runs"
	collectionSlaTargets    = "sla_targets"
	collectionIncidents     = "sla_incidents"
	collectionAppointments  = "appointments"
	collectionConversations = "conversations"
	collectionMessages      = "messages"
	collectionNotifications = "notifications"
	collectionPreferences   = "channel_preferences"
)

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
	seq  int64 // insertion counter, breaks ordering ties
}

// NewPersistence creates a new file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	_, err := os.Stat(p.root)
	if os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) collectionDir(collection string) string {
	return filepath.Join(p.root, collection)
}

func (p *Persistence) nextSeq() int64 {
	p.seq++

	return p.seq
}

// write stores a document under collection/id.json, creating the collection
// directory on first use. Callers must hold the lock.
func (p *Persistence) write(collection, id string, value any) error {
	dir := p.collectionDir(collection)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create collection directory %s: %w", collection, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", collection, id, err)
	}

	return nil
}

// readInto loads collection/id.json into out. It reports false without error
// when the document does not exist. Callers must hold the lock.
func (p *Persistence) readInto(collection, id string, out any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(p.collectionDir(collection), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read document %s/%s: %w", collection, id, err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, id, err)
	}

	return true, nil
}

// remove deletes collection/id.json. It reports whether the document existed.
// Callers must hold the lock.
func (p *Persistence) remove(collection, id string) (bool, error) {
	err := os.Remove(filepath.Join(p.collectionDir(collection), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to remove document %s/%s: %w", collection, id, err)
	}

	return true, nil
}

// readAll loads every document in a collection. Callers must hold the lock.
func readAll[T any](p *Persistence, collection string) ([]*T, error) {
	dir := p.collectionDir(collection)

	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return []*T{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}

	items := make([]*T, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		item := new(T)

		found, err := p.readInto(collection, strings.TrimSuffix(name, ".json"), item)
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, item)
		}
	}

	return items, nil
}
