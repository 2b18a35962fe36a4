package catalog

import (
	"fmt"
	"strings"

	"vapi/internal/config"
	"vapi/internal/schema"
)

// Verb is the operation an endpoint serves.
type Verb string

const (
	VerbGet     Verb = "GET"
	VerbGetByID Verb = "GET_BY_ID"
	VerbPost    Verb = "POST"
	VerbPut     Verb = "PUT"
	VerbDelete  Verb = "DELETE"
)

// Valid reports whether v is one of the known verbs (case-insensitive).
func (v Verb) Valid() bool {
	switch Verb(strings.ToUpper(string(v))) {
	case VerbGet, VerbGetByID, VerbPost, VerbPut, VerbDelete:
		return true
	}
	return false
}

// Matches compares verbs case-insensitively.
func (v Verb) Matches(other string) bool {
	return strings.EqualFold(string(v), other)
}

// ServiceConfig is the root configuration record for one emulated service.
type ServiceConfig struct {
	Name        string         `json:"name"`
	IsActive    bool           `json:"isActive"`
	Description string         `json:"description,omitempty"`
	Entities    []EntityConfig `json:"entities,omitempty"`
}

// EntityConfig is a named sub-resource of a service.
type EntityConfig struct {
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	// Structure is nil for open entities that accept any JSON document.
	Structure *schema.Schema   `json:"structure,omitempty"`
	Endpoints []EndpointConfig `json:"endpoints,omitempty"`
}

// EndpointConfig is one servable (route, verb) pair on an entity.
type EndpointConfig struct {
	Route    string `json:"route"`
	Verb     Verb   `json:"verb"`
	IsActive bool   `json:"isActive"`
}

// Entity returns the first entity with the given name, regardless of activation.
func (s *ServiceConfig) Entity(name string) (*EntityConfig, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Clone returns a copy that shares nothing mutable with s. Compiled schemas
// are immutable and shared.
func (s *ServiceConfig) Clone() *ServiceConfig {
	if s == nil {
		return nil
	}
	out := *s
	if s.Entities != nil {
		out.Entities = make([]EntityConfig, len(s.Entities))
		for i, e := range s.Entities {
			out.Entities[i] = e
			if e.Endpoints != nil {
				out.Entities[i].Endpoints = append([]EndpointConfig(nil), e.Endpoints...)
			}
		}
	}
	return &out
}

// ValidateServiceName checks that a service name can be used as a record key.
func ValidateServiceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidName)
	}
	if config.SanitizeFilename(name) != name {
		return fmt.Errorf("%w: service name %q is not filename-safe", ErrInvalidName, name)
	}
	return nil
}

// ValidateEntityName checks that an entity name yields a usable resource id.
func ValidateEntityName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: entity name cannot be empty", ErrInvalidName)
	}
	return nil
}

// Validate checks the record's own invariants before it is written.
func (s *ServiceConfig) Validate() error {
	if err := ValidateServiceName(s.Name); err != nil {
		return err
	}
	for i, e := range s.Entities {
		if err := ValidateEntityName(e.Name); err != nil {
			return fmt.Errorf("entities[%d]: %w", i, err)
		}
		for j, ep := range e.Endpoints {
			if !ep.Verb.Valid() {
				return fmt.Errorf("%w: entities[%d].endpoints[%d]: unknown verb %q", ErrInvalidRecord, i, j, ep.Verb)
			}
		}
	}
	return nil
}

// ResourceID is the name of the backing collection for a (service, entity)
// pair: both names trimmed, internal whitespace removed, joined by "_".
func ResourceID(serviceName, entityName string) string {
	return squeeze(serviceName) + "_" + squeeze(entityName)
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), "")
}
