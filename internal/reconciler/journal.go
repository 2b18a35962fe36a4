package reconciler

import (
	"errors"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	"vapi/internal/config"
	"vapi/pkg/logging"
)

// journal persists rename intents as records of the "renames" kind.
type journal struct {
	storage *config.Storage
}

func (j *journal) write(intent *RenameIntent) error {
	data, err := yaml.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to encode rename intent: %w", err)
	}
	return j.storage.Save(config.KindRenames, intent.ID, data)
}

func (j *journal) remove(id string) error {
	err := j.storage.Delete(config.KindRenames, id)
	if err != nil && !errors.Is(err, config.ErrEntityNotFound) {
		return err
	}
	return nil
}

// pending returns every readable intent, oldest first. Unreadable records are
// logged and left in place for an operator to inspect.
func (j *journal) pending() ([]*RenameIntent, error) {
	ids, err := j.storage.List(config.KindRenames)
	if err != nil {
		return nil, err
	}

	intents := make([]*RenameIntent, 0, len(ids))
	for _, id := range ids {
		data, err := j.storage.Load(config.KindRenames, id)
		if err != nil {
			if errors.Is(err, config.ErrEntityNotFound) {
				continue
			}
			return nil, err
		}
		var intent RenameIntent
		if err := yaml.Unmarshal(data, &intent); err != nil {
			logging.Warn("Reconciler", "Ignoring unreadable rename intent %s: %v", id, err)
			continue
		}
		if intent.ID == "" {
			intent.ID = id
		}
		intents = append(intents, &intent)
	}

	sort.SliceStable(intents, func(a, b int) bool {
		return intents[a].CreatedAt.Before(intents[b].CreatedAt)
	})
	return intents, nil
}
