package docstore

import (
	"context"
	"errors"
)

// IDField is the document field that carries the store-assigned identifier.
const IDField = "id"

var (
	// ErrStorageUnavailable marks a failure to reach the document store.
	ErrStorageUnavailable = errors.New("document store unavailable")

	// ErrNamespaceExists marks a rename whose target collection already exists.
	ErrNamespaceExists = errors.New("collection already exists")

	// ErrNamespaceNotFound marks a rename whose source collection does not exist.
	ErrNamespaceNotFound = errors.New("collection not found")
)

// Document is a stored JSON object.
type Document = map[string]any

// Store manages named collections of documents.
//
// Reads against a collection that does not exist behave as if it were empty.
// Insert creates the collection when needed. Each call is atomic for the single
// document it touches and nothing more.
type Store interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)
	// EnsureCollection creates the collection if absent and reports whether it did.
	EnsureCollection(ctx context.Context, name string) (bool, error)
	// DropCollection removes a collection and its documents. Dropping a
	// missing collection is not an error.
	DropCollection(ctx context.Context, name string) error
	// RenameCollection moves all documents of from into a new collection to.
	RenameCollection(ctx context.Context, from, to string) error
	// MergeCollection copies every document of from into to, keeping
	// identifiers, then drops from. A document whose id is already present in
	// to is left as it is there. It returns how many documents from held and
	// fails with ErrNamespaceNotFound if from is missing.
	MergeCollection(ctx context.Context, from, to string) (int, error)

	// Find returns the documents whose top-level fields equal every entry of filter.
	Find(ctx context.Context, collection string, filter map[string]any) ([]Document, error)
	// FindByID returns the document with the given id, or nil.
	FindByID(ctx context.Context, collection, id string) (Document, error)
	// Insert stores doc under a newly assigned id and returns the stored document.
	Insert(ctx context.Context, collection string, doc Document) (Document, error)
	// Replace overwrites the document with the given id and returns it, or nil
	// if no such document exists.
	Replace(ctx context.Context, collection, id string, doc Document) (Document, error)
	// Delete removes the document with the given id and reports whether it existed.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// Close releases the store's connections.
	Close(ctx context.Context) error
}

// WithoutID returns a shallow copy of doc with the identifier field removed.
func WithoutID(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
