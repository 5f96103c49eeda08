// Package ledger persists the descriptor of the last successfully started
// deployment.
//
// The ledger is a single mutable cell backed by one JSON file: Persist
// replaces the record wholesale and Load reads it back at boot. No history is
// kept. A missing or unparseable file is treated as "no prior deployment",
// never as a fatal condition, so a corrupted state file cannot keep the host
// process from starting.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slipway-sh/slipway/internal/logger"
	"github.com/slipway-sh/slipway/pkg/deploy"
)

// Ledger stores the active deployment descriptor in a JSON file.
type Ledger struct {
	path string
}

// New creates a Ledger backed by the file at path. The parent directory is
// created if it does not exist.
func New(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &Ledger{path: path}, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Persist durably writes desc as the sole ledger record, replacing any prior
// one. The record is written to a temporary file, fsynced and renamed into
// place so a crash mid-write never leaves a truncated record at the final
// path.
func (l *Ledger) Persist(desc *deploy.Descriptor) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	data = append(data, '\n')

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write ledger record: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush ledger record: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	logger.Debug("ledger record persisted",
		"version", desc.Version, "port", desc.Port, "path", l.path)
	return nil
}

// Load reads the current ledger record. It returns (nil, nil) when no record
// exists or the file cannot be parsed; a corrupt record is logged and treated
// as absent.
func (l *Ledger) Load() (*deploy.Descriptor, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var desc deploy.Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		logger.Warn("ledger record is corrupt, treating as absent",
			"path", l.path, "error", err)
		return nil, nil
	}
	if desc.Version == "" {
		logger.Warn("ledger record has no version, treating as absent", "path", l.path)
		return nil, nil
	}
	return &desc, nil
}
