// Package resource maps resolved emulated API requests onto the document
// store. Each (service, entity) pair owns one collection named by
// catalog.ResourceID; documents written to it are checked against the
// entity's structure first.
package resource
