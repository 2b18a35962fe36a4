package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vapi/pkg/logging"
)

// ErrEntityNotFound is returned by Load and Delete when no record exists.
var ErrEntityNotFound = errors.New("entity not found")

const recordExt = ".yaml"

// Storage provides file-backed persistence for named records grouped by kind.
// Each record lives in {configPath}/{kind}/{name}.yaml.
type Storage struct {
	mu         sync.RWMutex
	configPath string
}

// NewStorageWithPath creates a new Storage instance rooted at configPath.
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{
		configPath: configPath,
	}
}

// Root returns the directory all kinds are stored under.
func (ds *Storage) Root() string {
	return ds.configPath
}

// KindDir returns the directory holding records of the given kind.
func (ds *Storage) KindDir(kind string) string {
	return filepath.Join(ds.configPath, kind)
}

// Path returns the file path a record of the given kind and name is stored at.
func (ds *Storage) Path(kind, name string) string {
	return filepath.Join(ds.KindDir(kind), SanitizeFilename(name)+recordExt)
}

// Save stores data for the given kind and name.
// The file is written to a temporary sibling and renamed into place, so readers
// and watchers never observe a partially written record.
func (ds *Storage) Save(kind string, name string, data []byte) error {
	if err := checkArgs(kind, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	targetDir := ds.KindDir(kind)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := ds.Path(kind, name)
	tmp, err := os.CreateTemp(targetDir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", targetDir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", filePath, err)
	}

	logging.Debug("Storage", "Saved %s/%s to %s", kind, name, filePath)
	return nil
}

// Load retrieves data for the given kind and name.
// Returns ErrEntityNotFound (wrapped) if the record does not exist.
func (ds *Storage) Load(kind string, name string) ([]byte, error) {
	if err := checkArgs(kind, name); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	filePath := ds.Path(kind, name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrEntityNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Loaded %s/%s from %s", kind, name, filePath)
	return data, nil
}

// Exists reports whether a record of the given kind and name is present.
func (ds *Storage) Exists(kind string, name string) (bool, error) {
	if err := checkArgs(kind, name); err != nil {
		return false, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	_, err := os.Stat(ds.Path(kind, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes the file for the given kind and name.
func (ds *Storage) Delete(kind string, name string) error {
	if err := checkArgs(kind, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	filePath := ds.Path(kind, name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", kind, name, ErrEntityNotFound)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Deleted %s/%s from %s", kind, name, filePath)
	return nil
}

// List returns all available names for the given kind, sorted.
func (ds *Storage) List(kind string) ([]string, error) {
	if kind == "" {
		return nil, fmt.Errorf("kind cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	names, err := listFilesInDirectory(ds.KindDir(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return names, nil
}

func checkArgs(kind, name string) error {
	if kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

// listFilesInDirectory lists all .yaml files in a directory and returns their base names.
// Hidden files (temporary writes) are skipped.
func listFilesInDirectory(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsRecordFile(entry.Name()) {
			continue
		}
		names = append(names, RecordName(entry.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// IsRecordFile reports whether a file name looks like a stored record.
func IsRecordFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), recordExt)
}

// RecordName strips the directory and extension from a record path.
func RecordName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SanitizeFilename ensures the filename is safe for filesystem operations.
func SanitizeFilename(name string) string {
	sanitized := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_",
	).Replace(name)

	sanitized = strings.Trim(sanitized, " _")
	sanitized = strings.ReplaceAll(sanitized, " ", "_")

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
