package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"sigs.k8s.io/yaml"

	"vapi/internal/config"
	"vapi/pkg/logging"
)

// ConfigStore reads and writes one configuration record per service, serving
// reads from an explicitly owned Cache.
//
// Writes through Put, Create, Delete and MoveRecord update the cache in the same
// call, so they are visible to the next Get in this process. Edits made to the
// record files by anything else become visible once Invalidate is called for
// the affected names.
type ConfigStore struct {
	storage *config.Storage
	cache   *Cache

	// loads collapses concurrent cache misses for the same name and generation
	loads singleflight.Group

	// writeMu serializes mutations so check-then-write sequences are atomic
	writeMu sync.Mutex

	renamer Renamer
}

// NewConfigStore creates a store over storage using cache.
func NewConfigStore(storage *config.Storage, cache *Cache) *ConfigStore {
	return &ConfigStore{
		storage: storage,
		cache:   cache,
	}
}

// Get returns the service record, or nil if none exists. A record that exists
// but cannot be parsed yields an error matching ErrConfigCorrupt.
func (s *ConfigStore) Get(ctx context.Context, name string) (*ServiceConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if svc, ok := s.cache.Get(name); ok {
		return svc.Clone(), nil
	}

	gen := s.cache.Generation(name)
	key := fmt.Sprintf("%s@%d", name, gen)

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		svc, err := s.load(name)
		if err != nil || svc == nil {
			return svc, err
		}
		if s.cache.Fill(name, svc, gen) {
			logging.Debug("ConfigStore", "Cached service %s", name)
		}
		return svc, nil
	})
	if err != nil {
		return nil, err
	}
	svc, _ := v.(*ServiceConfig)
	return svc.Clone(), nil
}

// load reads and parses the backing record without touching the cache.
func (s *ConfigStore) load(name string) (*ServiceConfig, error) {
	if name == "" {
		return nil, nil
	}
	data, err := s.storage.Load(config.KindServices, name)
	if err != nil {
		if errors.Is(err, config.ErrEntityNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read service %s: %w", name, err)
	}

	svc, err := decodeService(name, data)
	if err != nil {
		cerr := config.NewConfigurationError(
			s.storage.Path(config.KindServices, name), name, config.KindServices,
			config.ErrorTypeParse, err.Error(), ErrConfigCorrupt,
		)
		logging.Warn("ConfigStore", "Service %s is unreadable: %s", name, cerr.Message)
		return nil, cerr
	}

	for _, warning := range Lint(svc) {
		logging.Warn("ConfigStore", "Service %s: %s", name, warning)
	}
	return svc, nil
}

func decodeService(name string, data []byte) (*ServiceConfig, error) {
	var svc ServiceConfig
	if err := yaml.UnmarshalStrict(data, &svc); err != nil {
		return nil, err
	}
	if svc.Name == "" {
		svc.Name = name
	}
	if svc.Name != name {
		return nil, fmt.Errorf("record declares name %q but is stored as %q", svc.Name, name)
	}
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return &svc, nil
}

// Put writes the full record for name and replaces its cache entry.
func (s *ConfigStore) Put(ctx context.Context, name string, svc *ServiceConfig) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.putLocked(ctx, name, svc)
}

// Create writes a new record, failing with ErrNameConflict if name is taken.
func (s *ConfigStore) Create(ctx context.Context, svc *ServiceConfig) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	exists, err := s.storage.Exists(config.KindServices, svc.Name)
	if err != nil {
		return fmt.Errorf("failed to check service %s: %w", svc.Name, err)
	}
	if exists {
		return fmt.Errorf("service %s: %w", svc.Name, ErrNameConflict)
	}
	return s.putLocked(ctx, svc.Name, svc)
}

func (s *ConfigStore) putLocked(ctx context.Context, name string, svc *ServiceConfig) error {
	record := svc.Clone()
	if record.Name == "" {
		record.Name = name
	}
	if record.Name != name {
		return fmt.Errorf("%w: record name %q does not match key %q", ErrInvalidRecord, record.Name, name)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode service %s: %w", name, err)
	}

	// Last point at which cancellation leaves the record untouched.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.storage.Save(config.KindServices, name, data); err != nil {
		return err
	}

	s.cache.Set(name, record)
	logging.Info("ConfigStore", "Saved service %s", name)
	return nil
}

// Delete removes the record and its cache entry. It reports false if no
// record existed.
func (s *ConfigStore) Delete(ctx context.Context, name string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.storage.Delete(config.KindServices, name)
	s.cache.Evict(name)
	if err != nil {
		if errors.Is(err, config.ErrEntityNotFound) {
			return false, nil
		}
		return false, err
	}

	logging.Info("ConfigStore", "Deleted service %s", name)
	return true, nil
}

// Renamer renames a service together with the collections it owns.
type Renamer interface {
	RenameService(ctx context.Context, oldName, newName string) error
}

// SetRenamer routes Rename through r. Call it before the store is shared.
func (s *ConfigStore) SetRenamer(r Renamer) {
	s.renamer = r
}

// Rename renames a service and reports false if oldName does not exist. With
// a Renamer set, the rename is handed to it so the service's collections move
// along with the record. Without one only the record moves, as in MoveRecord.
func (s *ConfigStore) Rename(ctx context.Context, oldName, newName string) (bool, error) {
	if s.renamer == nil {
		return s.MoveRecord(ctx, oldName, newName)
	}
	err := s.renamer.RenameService(ctx, oldName, newName)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// MoveRecord moves the record for oldName to newName and rewrites its name
// field. Collections are not touched. It reports false if oldName does not
// exist and fails with ErrNameConflict if newName is taken. The new record is
// written before the old one is removed; a crash in between leaves both, and
// the old one can be deleted later.
func (s *ConfigStore) MoveRecord(ctx context.Context, oldName, newName string) (bool, error) {
	if err := ValidateServiceName(newName); err != nil {
		return false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	svc, err := s.load(oldName)
	if err != nil {
		return false, err
	}
	if svc == nil {
		return false, nil
	}
	if oldName == newName {
		return true, nil
	}

	exists, err := s.storage.Exists(config.KindServices, newName)
	if err != nil {
		return false, fmt.Errorf("failed to check service %s: %w", newName, err)
	}
	if exists {
		return false, fmt.Errorf("service %s: %w", newName, ErrNameConflict)
	}

	svc.Name = newName
	data, err := yaml.Marshal(svc)
	if err != nil {
		return false, fmt.Errorf("failed to encode service %s: %w", newName, err)
	}

	defer s.cache.Evict(oldName, newName)

	if err := s.storage.Save(config.KindServices, newName, data); err != nil {
		return false, err
	}
	if err := s.storage.Delete(config.KindServices, oldName); err != nil && !errors.Is(err, config.ErrEntityNotFound) {
		return true, fmt.Errorf("renamed service %s to %s but failed to remove the old record: %w", oldName, newName, err)
	}

	logging.Info("ConfigStore", "Renamed service %s to %s", oldName, newName)
	return true, nil
}

// ListNames returns the names of all stored services, sorted.
func (s *ConfigStore) ListNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.storage.List(config.KindServices)
}

// Exists reports whether a record is stored for name, without parsing it.
func (s *ConfigStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.storage.Exists(config.KindServices, name)
}

// Invalidate evicts cached records so the next Get re-reads them.
func (s *ConfigStore) Invalidate(names ...string) {
	s.cache.Evict(names...)
	logging.Debug("ConfigStore", "Invalidated %v", names)
}

// InvalidateAll evicts every cached record.
func (s *ConfigStore) InvalidateAll() {
	s.cache.Clear()
	logging.Debug("ConfigStore", "Invalidated all records")
}

// RecordPath returns the file a service record is stored in.
func (s *ConfigStore) RecordPath(name string) string {
	return s.storage.Path(config.KindServices, name)
}
