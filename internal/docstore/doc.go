// Package docstore defines the document store the emulated resources are
// persisted in. Backends live in the memory and mongo subpackages.
package docstore
