package validation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/catalog"
	"vapi/internal/config"
)

type fakeSource struct {
	services map[string]*catalog.ServiceConfig
	err      error
}

func (f *fakeSource) Get(_ context.Context, name string) (*catalog.ServiceConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.services[name].Clone(), nil
}

func shop(serviceActive, entityActive, endpointActive bool) *catalog.ServiceConfig {
	return &catalog.ServiceConfig{
		Name:     "Shop",
		IsActive: serviceActive,
		Entities: []catalog.EntityConfig{
			{
				Name:     "Orders",
				IsActive: entityActive,
				Endpoints: []catalog.EndpointConfig{
					{Route: "list", Verb: catalog.VerbGet, IsActive: endpointActive},
				},
			},
		},
	}
}

func resolverFor(services ...*catalog.ServiceConfig) *Resolver {
	src := &fakeSource{services: map[string]*catalog.ServiceConfig{}}
	for _, s := range services {
		src.services[s.Name] = s
	}
	return NewResolver(src)
}

func TestResolve_Scenarios(t *testing.T) {
	ctx := context.Background()

	r := resolverFor(shop(true, true, true))
	res, err := r.Resolve(ctx, "Shop", "Orders", "list", "GET")
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, StageResolved, res.Stage)
	assert.Equal(t, "Shop_Orders", res.ResourceID())
	require.NotNil(t, res.Endpoint)
	assert.Equal(t, "list", res.Endpoint.Route)

	res, err = r.Resolve(ctx, "Shop", "Orders", "list", "POST")
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, StageEndpoint, res.Stage)
	assert.NotNil(t, res.Service)
	assert.NotNil(t, res.Entity)

	r = resolverFor(shop(true, false, true))
	res, err = r.Resolve(ctx, "Shop", "Orders", "list", "GET")
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, StageEntity, res.Stage)
	assert.NotNil(t, res.Service)
	assert.Nil(t, res.Entity)
}

func TestResolve_GateOrdering(t *testing.T) {
	ctx := context.Background()

	// Every combination of activation flags for every kind of request.
	requests := []struct {
		entity, route, verb string
	}{
		{"Orders", "list", "GET"},
		{"Orders", "list", "get"},
		{"Orders", "list", "DELETE"},
		{"Orders", "other", "GET"},
		{"Missing", "list", "GET"},
	}

	for _, svcActive := range []bool{true, false} {
		for _, entActive := range []bool{true, false} {
			for _, epActive := range []bool{true, false} {
				r := resolverFor(shop(svcActive, entActive, epActive))
				for _, req := range requests {
					name := fmt.Sprintf("svc=%v/ent=%v/ep=%v/%s %s %s", svcActive, entActive, epActive, req.entity, req.verb, req.route)
					t.Run(name, func(t *testing.T) {
						res, err := r.Resolve(ctx, "Shop", req.entity, req.route, req.verb)
						require.NoError(t, err)

						switch {
						case !svcActive:
							assert.Equal(t, StageService, res.Stage)
							assert.Nil(t, res.Service)
							assert.Nil(t, res.Entity)
						case !entActive || req.entity != "Orders":
							assert.Equal(t, StageEntity, res.Stage)
							assert.NotNil(t, res.Service)
							assert.Nil(t, res.Entity)
						case !epActive || req.route != "list" || !catalog.VerbGet.Matches(req.verb):
							assert.Equal(t, StageEndpoint, res.Stage)
							assert.NotNil(t, res.Service)
							assert.NotNil(t, res.Entity)
						default:
							assert.True(t, res.Valid())
							return
						}
						assert.False(t, res.Valid())
						assert.Nil(t, res.Endpoint)
					})
				}
			}
		}
	}
}

func TestResolve_MissingService(t *testing.T) {
	res, err := resolverFor().Resolve(context.Background(), "Nope", "Orders", "list", "GET")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Outcome: Invalid, Stage: StageService}, res)
	assert.Equal(t, "", res.ResourceID())
}

func TestResolve_FirstActiveMatchWins(t *testing.T) {
	svc := &catalog.ServiceConfig{
		Name:     "Shop",
		IsActive: true,
		Entities: []catalog.EntityConfig{
			{Name: "Orders", IsActive: false},
			{Name: "Orders", IsActive: true, Endpoints: []catalog.EndpointConfig{
				{Route: "list", Verb: catalog.VerbGet, IsActive: false},
				{Route: "list", Verb: catalog.VerbGet, IsActive: true},
				{Route: "list", Verb: "get", IsActive: true},
			}},
		},
	}

	res, err := resolverFor(svc).Resolve(context.Background(), "Shop", "Orders", "list", "GET")
	require.NoError(t, err)
	require.True(t, res.Valid())
	assert.Same(t, &res.Service.Entities[1], res.Entity)
	assert.Same(t, &res.Entity.Endpoints[1], res.Endpoint)
}

func TestResolve_StoreErrorsPropagate(t *testing.T) {
	corrupt := config.NewConfigurationError("/x/Shop.yaml", "Shop", config.KindServices, config.ErrorTypeParse, "bad", catalog.ErrConfigCorrupt)
	r := NewResolver(&fakeSource{err: corrupt})

	res, err := r.Resolve(context.Background(), "Shop", "Orders", "list", "GET")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrConfigCorrupt))
	assert.False(t, res.Valid())
	assert.Nil(t, res.Service)
}

func TestResolve_AgainstConfigStore(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewConfigStore(config.NewStorageWithPath(t.TempDir()), catalog.NewCache(0))
	require.NoError(t, store.Put(ctx, "Shop", shop(true, true, true)))

	r := NewResolver(store)
	res, err := r.Resolve(ctx, "Shop", "Orders", "list", "GET")
	require.NoError(t, err)
	assert.True(t, res.Valid())

	disabled := shop(false, true, true)
	require.NoError(t, store.Put(ctx, "Shop", disabled))

	res, err = r.Resolve(ctx, "Shop", "Orders", "list", "GET")
	require.NoError(t, err)
	assert.Equal(t, StageService, res.Stage)
}
