package validation

import (
	"context"
	"fmt"

	"vapi/internal/catalog"
	"vapi/pkg/logging"
)

// Outcome is the result of resolving a request against configuration.
type Outcome int

const (
	Invalid Outcome = iota
	Valid
)

func (o Outcome) String() string {
	if o == Valid {
		return "valid"
	}
	return "invalid"
}

// Stage names the gate a resolution stopped at.
type Stage string

const (
	StageService  Stage = "service"
	StageEntity   Stage = "entity"
	StageEndpoint Stage = "endpoint"
	// StageResolved is reported for valid resolutions.
	StageResolved Stage = "resolved"
)

// Resolution carries the outcome together with the deepest record that was
// resolved before a gate failed. Service is nil when the service gate failed
// and Entity is nil when the service or entity gate failed.
type Resolution struct {
	Outcome  Outcome
	Stage    Stage
	Service  *catalog.ServiceConfig
	Entity   *catalog.EntityConfig
	Endpoint *catalog.EndpointConfig
}

// Valid reports whether every gate passed.
func (r Resolution) Valid() bool {
	return r.Outcome == Valid
}

// ResourceID returns the backing collection name of a valid resolution.
func (r Resolution) ResourceID() string {
	if r.Service == nil || r.Entity == nil {
		return ""
	}
	return catalog.ResourceID(r.Service.Name, r.Entity.Name)
}

func (r Resolution) String() string {
	if r.Valid() {
		return fmt.Sprintf("valid %s", r.ResourceID())
	}
	return fmt.Sprintf("invalid at %s gate", r.Stage)
}

// ServiceSource loads service records by name.
type ServiceSource interface {
	Get(ctx context.Context, name string) (*catalog.ServiceConfig, error)
}

// Resolver resolves (service, entity, route, verb) tuples against configuration.
type Resolver struct {
	services ServiceSource
}

// NewResolver creates a resolver reading from services.
func NewResolver(services ServiceSource) *Resolver {
	return &Resolver{services: services}
}

// Resolve walks service, entity and endpoint in that order and stops at the
// first gate that fails. An inactive service hides everything beneath it and
// an inactive entity hides its endpoints.
//
// Business outcomes are never errors. An error is returned only when the
// service record could not be read, including when it is corrupt.
func (r *Resolver) Resolve(ctx context.Context, serviceName, entityName, route, verb string) (Resolution, error) {
	svc, err := r.services.Get(ctx, serviceName)
	if err != nil {
		logging.Error("Resolver", err, "Failed to load service %s", serviceName)
		return Resolution{Outcome: Invalid, Stage: StageService}, err
	}
	if svc == nil || !svc.IsActive {
		logging.Debug("Resolver", "Service %s is absent or inactive", serviceName)
		return Resolution{Outcome: Invalid, Stage: StageService}, nil
	}

	entity := findEntity(svc, entityName)
	if entity == nil {
		logging.Debug("Resolver", "No active entity %s in service %s", entityName, serviceName)
		return Resolution{Outcome: Invalid, Stage: StageEntity, Service: svc}, nil
	}

	endpoint := findEndpoint(entity, route, verb)
	if endpoint == nil {
		logging.Debug("Resolver", "No active endpoint %s %s on %s/%s", verb, route, serviceName, entityName)
		return Resolution{Outcome: Invalid, Stage: StageEndpoint, Service: svc, Entity: entity}, nil
	}

	return Resolution{
		Outcome:  Valid,
		Stage:    StageResolved,
		Service:  svc,
		Entity:   entity,
		Endpoint: endpoint,
	}, nil
}

// findEntity returns the first active entity with the given name.
func findEntity(svc *catalog.ServiceConfig, name string) *catalog.EntityConfig {
	for i := range svc.Entities {
		if svc.Entities[i].Name == name && svc.Entities[i].IsActive {
			return &svc.Entities[i]
		}
	}
	return nil
}

// findEndpoint returns the first active endpoint serving route with verb.
func findEndpoint(entity *catalog.EntityConfig, route, verb string) *catalog.EndpointConfig {
	for i := range entity.Endpoints {
		ep := &entity.Endpoints[i]
		if ep.Route == route && ep.Verb.Matches(verb) && ep.IsActive {
			return ep
		}
	}
	return nil
}
