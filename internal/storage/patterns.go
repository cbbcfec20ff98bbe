package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wesellis/pulse-activity-tracker/internal/core"
	"gopkg.in/yaml.v3"
)

// PatternFile persists the last published pattern snapshot as
// patterns.yaml so short-lived CLI invocations need not rebuild.
type PatternFile struct {
	basePath string
	mu       sync.Mutex
}

// NewPatternFile creates a PatternFile rooted at basePath.
func NewPatternFile(basePath string) *PatternFile {
	return &PatternFile{basePath: basePath}
}

// Path returns the snapshot file location.
func (p *PatternFile) Path() string {
	return filepath.Join(p.basePath, "patterns.yaml")
}

// SaveSnapshot writes snap atomically via a temp file and rename.
func (p *PatternFile) SaveSnapshot(snap *core.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("saving pattern snapshot: snapshot is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return fmt.Errorf("saving pattern snapshot: creating directory: %w", err)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("saving pattern snapshot: %w", err)
	}
	tmp := p.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving pattern snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.Path()); err != nil {
		return fmt.Errorf("saving pattern snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the persisted snapshot. It returns nil and no error
// when no snapshot has been written yet.
func (p *PatternFile) LoadSnapshot() (*core.Snapshot, error) {
	data, err := os.ReadFile(p.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading pattern snapshot: %w", err)
	}
	var snap core.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing pattern snapshot: %w", err)
	}
	return &snap, nil
}
