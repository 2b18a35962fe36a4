package app

import (
	"context"
	"fmt"

	"vapi/internal/api"
	"vapi/internal/catalog"
	"vapi/internal/config"
	"vapi/internal/docstore"
	"vapi/internal/docstore/memory"
	"vapi/internal/docstore/mongo"
	"vapi/internal/events"
	"vapi/internal/reconciler"
	"vapi/internal/resource"
	"vapi/internal/validation"
	"vapi/internal/watcher"
	"vapi/pkg/logging"
)

// Services holds the initialized components of a running instance.
//
// Components are created in dependency order: record storage and the
// configuration cache first, then the document store, then everything that
// reads from both. Watcher is nil when file watching is disabled.
type Services struct {
	Storage    *config.Storage
	Cache      *catalog.Cache
	Configs    *catalog.ConfigStore
	Resolver   *validation.Resolver
	DocStore   docstore.Store
	Gateway    *resource.Gateway
	Reconciler *reconciler.Reconciler
	Watcher    *watcher.Watcher
	Broker     *events.Broker
	Server     *api.Server
}

// openDocStore connects the document store selected in settings.
func openDocStore(ctx context.Context, settings config.StoreSettings) (docstore.Store, error) {
	switch settings.Driver {
	case config.StoreDriverMongo:
		store, err := mongo.Connect(ctx, settings.URI, settings.Database, settings.Timeout)
		if err != nil {
			return nil, err
		}
		logging.Info("Bootstrap", "Connected to MongoDB database %s", settings.Database)
		return store, nil
	case config.StoreDriverMemory, "":
		logging.Warn("Bootstrap", "Using the in-memory document store, documents are lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", settings.Driver)
	}
}

// InitializeServices creates and wires every component for settings.
func InitializeServices(ctx context.Context, settings config.Settings) (*Services, error) {
	storage := config.NewStorageWithPath(settings.ConfigDir)
	cache := catalog.NewCache(settings.Cache.TTL)
	configs := catalog.NewConfigStore(storage, cache)

	store, err := openDocStore(ctx, settings.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	broker := events.NewBroker()
	rec := reconciler.New(configs, store, storage, reconciler.Options{
		Interval:   settings.Reconciler.Interval,
		MaxBackoff: settings.Reconciler.MaxBackoff,
	})
	configs.SetRenamer(rec)
	rec.OnPass(func(result reconciler.PassResult) {
		evt := events.NewEvent(events.ReasonCollectionsReconciled, "")
		if names, err := configs.ListNames(context.Background()); err == nil {
			evt.Services = names
		}
		broker.Publish(evt)
	})

	var w *watcher.Watcher
	if settings.Watcher.Enabled {
		w = watcher.New(storage.KindDir(config.KindServices), settings.Watcher.Debounce, configs)
		w.OnChange(func(change watcher.Event) {
			rec.Trigger()
			evt := events.NewEvent(events.ReasonServiceChangedOnDisk, change.Name)
			if names, err := configs.ListNames(context.Background()); err == nil {
				evt.Services = names
			}
			broker.Publish(evt)
		})
	}

	resolver := validation.NewResolver(configs)
	gateway := resource.NewGateway(store)

	server := api.NewServer(api.Dependencies{
		Services:  configs,
		Resolver:  resolver,
		Gateway:   gateway,
		Lifecycle: rec,
		Broker:    broker,
	}, settings.Listen)

	logging.Info("Bootstrap", "Serving service records from %s", storage.KindDir(config.KindServices))

	return &Services{
		Storage:    storage,
		Cache:      cache,
		Configs:    configs,
		Resolver:   resolver,
		DocStore:   store,
		Gateway:    gateway,
		Reconciler: rec,
		Watcher:    w,
		Broker:     broker,
		Server:     server,
	}, nil
}

// Close releases what InitializeServices acquired. The background loops must
// already be stopped.
func (s *Services) Close(ctx context.Context) error {
	s.Broker.Close()
	s.Cache.Clear()
	if err := s.DocStore.Close(ctx); err != nil {
		return fmt.Errorf("failed to close document store: %w", err)
	}
	return nil
}
