package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vapi/internal/catalog"
	"vapi/internal/config"
	"vapi/internal/docstore"
	"vapi/pkg/logging"
)

// Reconciler keeps the collections of the document store aligned with the
// service configuration.
//
// Passes and renames are mutually exclusive within one Reconciler; request
// traffic is never blocked by either.
type Reconciler struct {
	// opMu serializes passes and renames
	opMu sync.Mutex

	configs ConfigSource
	store   docstore.Store
	journal *journal
	options Options

	// status, trigger loop state
	mu      sync.RWMutex
	status  Status
	trigger chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	listeners []func(PassResult)
}

// New creates a reconciler. Rename intents are journaled in storage.
func New(configs ConfigSource, store docstore.Store, storage *config.Storage, options Options) *Reconciler {
	return &Reconciler{
		configs: configs,
		store:   store,
		journal: &journal{storage: storage},
		options: options.withDefaults(),
		trigger: make(chan struct{}, 1),
	}
}

// OnPass registers fn to be called after every pass that changed something.
// Register listeners before Start.
func (r *Reconciler) OnPass(fn func(PassResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reconcile runs one pass: it completes any pending renames, then drops every
// collection that no configured (service, entity) pair owns. Inactive
// configuration still owns its collections.
//
// A collection is never dropped while its owner might exist but cannot be
// read: collections prefixed by a corrupt service's name are kept, and a
// failure to list the configuration aborts the pass before anything is
// dropped. Failures of individual drops or moves are recorded in the result
// and the pass carries on.
func (r *Reconciler) Reconcile(ctx context.Context) (PassResult, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	result := PassResult{StartedAt: time.Now()}
	err := r.reconcile(ctx, &result)
	result.Duration = time.Since(result.StartedAt)

	r.record(result, err)
	if err != nil {
		logging.Error("Reconciler", err, "Reconciliation pass aborted")
		return result, err
	}

	if result.Changed() || result.Failed() {
		logging.Info("Reconciler", "Pass finished in %v: %d dropped, %d moved, %d failed",
			result.Duration, len(result.Dropped), len(result.Moved), len(result.Failures))
	} else {
		logging.Debug("Reconciler", "Pass finished in %v with nothing to do", result.Duration)
	}
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, result *PassResult) error {
	protected := make(map[string]bool)

	intents, err := r.journal.pending()
	if err != nil {
		return fmt.Errorf("failed to read rename journal: %w", err)
	}
	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.replay(ctx, intent, result) {
			for _, m := range intent.Moves {
				protected[m.From] = true
				protected[m.To] = true
			}
		}
	}

	owned, corrupt, err := r.ownedCollections(ctx)
	if err != nil {
		return err
	}

	collections, err := r.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(collections)

	for _, name := range collections {
		if owned[name] {
			continue
		}
		if protected[name] || hasAnyPrefix(name, corrupt) {
			result.Protected = append(result.Protected, name)
			logging.Warn("Reconciler", "Keeping collection %s: its owner is unreadable or mid-rename", name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.store.DropCollection(ctx, name); err != nil {
			logging.Error("Reconciler", err, "Failed to drop orphan collection %s", name)
			result.Failures = append(result.Failures, Failure{Collection: name, Operation: "drop", Error: err.Error()})
			continue
		}
		logging.Info("Reconciler", "Dropped orphan collection %s", name)
		result.Dropped = append(result.Dropped, name)
	}
	return nil
}

// ownedCollections computes the ResourceIDs implied by the configuration. It
// also returns the "<service>_" prefix of every service whose record is corrupt.
func (r *Reconciler) ownedCollections(ctx context.Context) (map[string]bool, []string, error) {
	names, err := r.configs.ListNames(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list services: %w", err)
	}

	services := make([]*catalog.ServiceConfig, len(names))
	unreadable := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			svc, err := r.configs.Get(gctx, name)
			if err != nil {
				if errors.Is(err, catalog.ErrConfigCorrupt) {
					unreadable[i] = true
					return nil
				}
				return fmt.Errorf("failed to load service %s: %w", name, err)
			}
			services[i] = svc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	owned := make(map[string]bool)
	var corrupt []string
	for i, svc := range services {
		if unreadable[i] {
			corrupt = append(corrupt, catalog.ResourceID(names[i], ""))
			continue
		}
		if svc == nil {
			// deleted since it was listed
			continue
		}
		for _, e := range svc.Entities {
			owned[catalog.ResourceID(svc.Name, e.Name)] = true
		}
	}
	return owned, corrupt, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// moveCollections renames each collection and reports whether all moves are
// settled. A missing source counts as settled: either nothing was ever stored
// or an earlier attempt already moved it. A target that appeared in the
// meantime, typically through a write under the new name, is merged into.
func (r *Reconciler) moveCollections(ctx context.Context, moves []CollectionMove, result *PassResult) bool {
	settled := true
	for _, m := range moves {
		err := r.store.RenameCollection(ctx, m.From, m.To)
		if errors.Is(err, docstore.ErrNamespaceExists) {
			var n int
			n, err = r.store.MergeCollection(ctx, m.From, m.To)
			if err == nil {
				logging.Warn("Reconciler", "Collection %s already existed, merged %d documents from %s", m.To, n, m.From)
			}
		}
		switch {
		case err == nil:
			logging.Info("Reconciler", "Moved collection %s to %s", m.From, m.To)
			if result != nil {
				result.Moved = append(result.Moved, m)
			}
		case errors.Is(err, docstore.ErrNamespaceNotFound):
			logging.Debug("Reconciler", "Nothing to move from %s", m.From)
		default:
			settled = false
			logging.Error("Reconciler", err, "Failed to move collection %s to %s", m.From, m.To)
			if result != nil {
				result.Failures = append(result.Failures, Failure{Collection: m.From, Operation: "rename", Error: err.Error()})
			}
		}
	}
	return settled
}
