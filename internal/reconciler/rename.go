package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vapi/internal/catalog"
	"vapi/pkg/logging"
)

// RenameService renames a service record and moves every collection it owns
// so that stored documents follow the new name.
//
// The intent is journaled first. If the process dies part way, the next
// Reconcile rolls the rename forward instead of treating the old collections
// as orphans.
func (r *Reconciler) RenameService(ctx context.Context, oldName, newName string) error {
	if err := catalog.ValidateServiceName(newName); err != nil {
		return err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	svc, err := r.configs.Get(ctx, oldName)
	if err != nil {
		return err
	}
	if svc == nil {
		return fmt.Errorf("service %s: %w", oldName, catalog.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	existing, err := r.configs.Get(ctx, newName)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("service %s: %w", newName, catalog.ErrNameConflict)
	}

	moves := collectionMoves(svc, func(e catalog.EntityConfig) (string, string) {
		return catalog.ResourceID(oldName, e.Name), catalog.ResourceID(newName, e.Name)
	})

	intent := &RenameIntent{
		ID:        uuid.NewString(),
		Kind:      RenameService,
		Service:   oldName,
		From:      oldName,
		To:        newName,
		Moves:     moves,
		CreatedAt: time.Now().UTC(),
	}
	return r.execute(ctx, intent)
}

// RenameEntity renames every entity called oldName within a service and moves
// the collection they share.
func (r *Reconciler) RenameEntity(ctx context.Context, serviceName, oldName, newName string) error {
	if err := catalog.ValidateEntityName(newName); err != nil {
		return err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	svc, err := r.configs.Get(ctx, serviceName)
	if err != nil {
		return err
	}
	if svc == nil {
		return fmt.Errorf("service %s: %w", serviceName, catalog.ErrNotFound)
	}
	if _, ok := svc.Entity(oldName); !ok {
		return fmt.Errorf("entity %s/%s: %w", serviceName, oldName, catalog.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := svc.Entity(newName); ok {
		return fmt.Errorf("entity %s/%s: %w", serviceName, newName, catalog.ErrNameConflict)
	}

	var moves []CollectionMove
	from, to := catalog.ResourceID(serviceName, oldName), catalog.ResourceID(serviceName, newName)
	if from != to {
		moves = []CollectionMove{{From: from, To: to}}
	}

	intent := &RenameIntent{
		ID:        uuid.NewString(),
		Kind:      RenameEntity,
		Service:   serviceName,
		From:      oldName,
		To:        newName,
		Moves:     moves,
		CreatedAt: time.Now().UTC(),
	}
	return r.execute(ctx, intent)
}

// execute checks that no target collection is taken, journals the intent and
// applies it. Callers hold opMu.
func (r *Reconciler) execute(ctx context.Context, intent *RenameIntent) error {
	if len(intent.Moves) > 0 {
		collections, err := r.store.ListCollections(ctx)
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}
		existing := make(map[string]bool, len(collections))
		for _, c := range collections {
			existing[c] = true
		}
		for _, m := range intent.Moves {
			if existing[m.To] {
				return fmt.Errorf("collection %s: %w", m.To, catalog.ErrNameConflict)
			}
		}
	}

	// Last point at which cancellation leaves everything untouched.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.journal.write(intent); err != nil {
		return fmt.Errorf("failed to journal rename: %w", err)
	}

	logging.Info("Reconciler", "Renaming %s %s to %s", intent.Kind, intent.From, intent.To)

	// The journal now owns completion, so a caller cancelling mid-way does not
	// leave the rename half applied in this process either.
	ctx = context.WithoutCancel(ctx)

	if err := r.applyConfig(ctx, intent); err != nil {
		return fmt.Errorf("rename journaled as %s but not applied: %w", intent.ID, err)
	}
	if !r.moveCollections(ctx, intent.Moves, nil) {
		return fmt.Errorf("renamed %s %s to %s but some collections did not move; journaled as %s for retry",
			intent.Kind, intent.From, intent.To, intent.ID)
	}
	if err := r.journal.remove(intent.ID); err != nil {
		logging.Warn("Reconciler", "Failed to clear rename intent %s: %v", intent.ID, err)
	}
	return nil
}

// replay rolls a pending intent forward and reports whether it completed.
func (r *Reconciler) replay(ctx context.Context, intent *RenameIntent, result *PassResult) bool {
	logging.Info("Reconciler", "Resuming rename of %s %s to %s", intent.Kind, intent.From, intent.To)

	if err := r.applyConfig(ctx, intent); err != nil {
		logging.Error("Reconciler", err, "Failed to resume rename %s", intent.ID)
		result.Failures = append(result.Failures, Failure{Operation: "resume rename " + intent.ID, Error: err.Error()})
		return false
	}
	if !r.moveCollections(ctx, intent.Moves, result) {
		return false
	}
	if err := r.journal.remove(intent.ID); err != nil {
		logging.Warn("Reconciler", "Failed to clear rename intent %s: %v", intent.ID, err)
	}
	return true
}

// applyConfig moves the configuration side of an intent. It is idempotent:
// a configuration that already carries the new name is left alone.
func (r *Reconciler) applyConfig(ctx context.Context, intent *RenameIntent) error {
	switch intent.Kind {
	case RenameService:
		return r.applyServiceRename(ctx, intent.From, intent.To)
	case RenameEntity:
		return r.applyEntityRename(ctx, intent.Service, intent.From, intent.To)
	default:
		return fmt.Errorf("unknown rename kind %q", intent.Kind)
	}
}

func (r *Reconciler) applyServiceRename(ctx context.Context, oldName, newName string) error {
	renamed, err := r.configs.Get(ctx, newName)
	if err != nil {
		return err
	}
	if renamed != nil {
		// Already migrated. A leftover old record is the crash window of the
		// store's own rename and is safe to drop.
		if _, err := r.configs.Delete(ctx, oldName); err != nil {
			return err
		}
		return nil
	}

	ok, err := r.configs.MoveRecord(ctx, oldName, newName)
	if err != nil {
		return err
	}
	if !ok {
		logging.Warn("Reconciler", "Service %s vanished before it could be renamed to %s", oldName, newName)
	}
	return nil
}

func (r *Reconciler) applyEntityRename(ctx context.Context, serviceName, oldName, newName string) error {
	svc, err := r.configs.Get(ctx, serviceName)
	if err != nil {
		return err
	}
	if svc == nil {
		logging.Warn("Reconciler", "Service %s vanished before entity %s could be renamed", serviceName, oldName)
		return nil
	}

	changed := false
	for i := range svc.Entities {
		if svc.Entities[i].Name == oldName {
			svc.Entities[i].Name = newName
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.configs.Put(ctx, serviceName, svc)
}

// collectionMoves lists one move per distinct collection owned by svc.
func collectionMoves(svc *catalog.ServiceConfig, ids func(catalog.EntityConfig) (string, string)) []CollectionMove {
	seen := make(map[string]bool, len(svc.Entities))
	var moves []CollectionMove
	for _, e := range svc.Entities {
		from, to := ids(e)
		if from == to || seen[from] {
			continue
		}
		seen[from] = true
		moves = append(moves, CollectionMove{From: from, To: to})
	}
	return moves
}
