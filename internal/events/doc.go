// Package events broadcasts service configuration changes to connected admin
// clients. Delivery is best effort; nothing in the request path waits for it.
package events
