// Package watcher keeps the ConfigStore cache honest when service records are
// edited outside the process.
//
// Changes made through the ConfigStore are already reflected in its cache. A
// record edited by hand or by another process is only picked up after the
// watcher has seen the change and evicted the cached copy; until then a read
// may return the previous version.
package watcher
