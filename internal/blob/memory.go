package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

// Memory is the local, disconnected backend. It always reports the document as
// present, so the reconciliation layer never tries to bootstrap it from GitHub.
type Memory struct {
	mu      sync.Mutex
	records []model.Record
}

// NewMemory creates a Memory store holding records.
func NewMemory(records []model.Record) *Memory {
	return &Memory{records: clone(records)}
}

// NewMemoryFromFile seeds a Memory store from a local JSON or CSV snapshot.
// A missing file yields an empty store.
func NewMemoryFromFile(path string) (*Memory, error) {
	if path == "" {
		return NewMemory(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("no local snapshot found, starting with empty collection", "path", path)
			return NewMemory(nil), nil
		}
		return nil, fmt.Errorf("reading local snapshot: %w", err)
	}

	records, err := snapshot.Decode(data, snapshot.FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing local snapshot %s: %w", path, err)
	}

	slog.Info("seeded in-memory store from local snapshot", "path", path, "count", len(records))
	return NewMemory(records), nil
}

func (m *Memory) Get(_ context.Context) ([]model.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return clone(m.records), true, nil
}

func (m *Memory) Set(_ context.Context, records []model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = clone(records)
	return nil
}

func (m *Memory) Kind() string { return "memory" }
