package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vapi/internal/docstore"
	"vapi/internal/schema"
	"vapi/internal/validation"
	"vapi/pkg/logging"
)

// ErrUnresolved is returned when an operation is attempted with a resolution
// that did not pass every gate.
var ErrUnresolved = errors.New("request did not resolve to an active endpoint")

// ValidationFailedError reports a document rejected by the entity structure.
type ValidationFailedError struct {
	ResourceID string
	Violations []schema.Violation
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("document rejected by %s: %s", e.ResourceID, strings.Join(parts, "; "))
}

// Gateway performs CRUD operations on the collection a resolution names.
// It applies no locking of its own; concurrent writers rely on the store's
// per-document atomicity.
type Gateway struct {
	store docstore.Store
}

// NewGateway creates a gateway over store.
func NewGateway(store docstore.Store) *Gateway {
	return &Gateway{store: store}
}

func resourceID(res validation.Resolution) (string, error) {
	if !res.Valid() {
		return "", fmt.Errorf("%w (%s)", ErrUnresolved, res)
	}
	return res.ResourceID(), nil
}

// checkDocument validates body against the resolved entity's structure and
// returns it as a storable object.
func checkDocument(id string, res validation.Resolution, body any) (docstore.Document, error) {
	violations := schema.Validate(res.Entity.Structure, body)
	if len(violations) > 0 {
		return nil, &ValidationFailedError{ResourceID: id, Violations: violations}
	}
	doc, ok := body.(map[string]any)
	if !ok {
		return nil, &ValidationFailedError{
			ResourceID: id,
			Violations: []schema.Violation{{Message: "document must be a JSON object"}},
		}
	}
	return doc, nil
}

// List returns the documents matching filter. A collection that has not been
// provisioned yet yields an empty list.
func (g *Gateway) List(ctx context.Context, res validation.Resolution, filter map[string]any) ([]docstore.Document, error) {
	id, err := resourceID(res)
	if err != nil {
		return nil, err
	}
	docs, err := g.store.Find(ctx, id, filter)
	if err != nil {
		logging.Error("Gateway", err, "Failed to list %s", id)
		return nil, err
	}
	logging.Debug("Gateway", "Listed %d documents from %s", len(docs), id)
	return docs, nil
}

// GetByID returns the document with the given id, or nil.
func (g *Gateway) GetByID(ctx context.Context, res validation.Resolution, docID string) (docstore.Document, error) {
	id, err := resourceID(res)
	if err != nil {
		return nil, err
	}
	doc, err := g.store.FindByID(ctx, id, docID)
	if err != nil {
		logging.Error("Gateway", err, "Failed to read %s/%s", id, docID)
		return nil, err
	}
	return doc, nil
}

// Create validates body, provisions the collection if needed and inserts the
// document. The stored document including its assigned id is returned.
func (g *Gateway) Create(ctx context.Context, res validation.Resolution, body any) (docstore.Document, error) {
	id, err := resourceID(res)
	if err != nil {
		return nil, err
	}
	doc, err := checkDocument(id, res, body)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	created, err := g.store.EnsureCollection(ctx, id)
	if err != nil {
		logging.Error("Gateway", err, "Failed to provision %s", id)
		return nil, err
	}
	if created {
		logging.Info("Gateway", "Provisioned collection %s", id)
	}

	stored, err := g.store.Insert(ctx, id, doc)
	if err != nil {
		logging.Error("Gateway", err, "Failed to insert into %s", id)
		return nil, err
	}
	logging.Debug("Gateway", "Created %s/%v", id, stored[docstore.IDField])
	return stored, nil
}

// Update validates body and replaces the document with the given id. It
// returns nil if no such document exists.
func (g *Gateway) Update(ctx context.Context, res validation.Resolution, docID string, body any) (docstore.Document, error) {
	id, err := resourceID(res)
	if err != nil {
		return nil, err
	}
	doc, err := checkDocument(id, res, body)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, err := g.store.Replace(ctx, id, docID, doc)
	if err != nil {
		logging.Error("Gateway", err, "Failed to replace %s/%s", id, docID)
		return nil, err
	}
	return stored, nil
}

// Delete removes the document with the given id and reports whether it existed.
func (g *Gateway) Delete(ctx context.Context, res validation.Resolution, docID string) (bool, error) {
	id, err := resourceID(res)
	if err != nil {
		return false, err
	}
	deleted, err := g.store.Delete(ctx, id, docID)
	if err != nil {
		logging.Error("Gateway", err, "Failed to delete %s/%s", id, docID)
		return false, err
	}
	return deleted, nil
}
