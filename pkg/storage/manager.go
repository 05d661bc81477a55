package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tempSuffix = ".tmp"

// Manager owns the output directory: it knows which media files are already
// present and writes new files atomically.
type Manager struct {
	outputDir string
	overwrite bool
	present   map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed and indexes the files
// already in it. With overwrite set, existing files are never reported as
// downloaded.
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if strings.HasPrefix(outputDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			outputDir = filepath.Join(home, outputDir[2:])
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		present:   make(map[string]bool),
	}
	if err := m.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return m, nil
}

// scanExistingFiles records every regular file in the output directory,
// ignoring leftovers of interrupted writes
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasSuffix(entry.Name(), tempSuffix) {
			m.present[entry.Name()] = true
		}
	}
	return nil
}

// IsDownloaded reports whether name already exists in the output directory
func (m *Manager) IsDownloaded(name string) bool {
	if m.overwrite {
		return false
	}

	m.mu.RLock()
	known := m.present[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.present[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save copies r into name via a temporary file and rename
func (m *Manager) Save(r io.Reader, name string) error {
	return m.WriteFile(name, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// WriteFile streams content produced by write into name atomically. A
// failed write leaves no partial file behind.
func (m *Manager) WriteFile(name string, write func(w io.Writer) error) error {
	filename := m.Path(name)
	tempFile := filename + tempSuffix

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = write(out)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.present[name] = true
	m.mu.Unlock()
	return nil
}

// Path returns the absolute-or-relative path of name inside the output dir
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetFileCount returns how many files are known to be in the output directory
func (m *Manager) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.present)
}
