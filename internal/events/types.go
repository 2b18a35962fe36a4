package events

import "time"

// EventReason says what kind of configuration change an event reports.
type EventReason string

const (
	// ReasonServiceSaved reports a service created or replaced through the admin API.
	ReasonServiceSaved EventReason = "ServiceSaved"

	// ReasonServiceDeleted reports a service removed through the admin API.
	ReasonServiceDeleted EventReason = "ServiceDeleted"

	// ReasonServiceRenamed reports a service renamed through the admin API.
	ReasonServiceRenamed EventReason = "ServiceRenamed"

	// ReasonEntityRenamed reports an entity renamed through the admin API.
	ReasonEntityRenamed EventReason = "EntityRenamed"

	// ReasonServiceChangedOnDisk reports a record edited outside the process.
	ReasonServiceChangedOnDisk EventReason = "ServiceChangedOnDisk"

	// ReasonCollectionsReconciled reports a reconciliation pass that dropped
	// or moved collections.
	ReasonCollectionsReconciled EventReason = "CollectionsReconciled"

	// ReasonReady is the first event on a new admin stream and carries the
	// current service list.
	ReasonReady EventReason = "Ready"
)

// Event is a notification for connected admin clients.
type Event struct {
	Reason EventReason `json:"reason"`
	// Service is the service the change applies to, if any.
	Service string `json:"service,omitempty"`
	// Previous is the old name of a renamed service or entity.
	Previous string `json:"previous,omitempty"`
	// Services is the service list after the change.
	Services  []string  `json:"services,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(reason EventReason, service string) Event {
	return Event{Reason: reason, Service: service, Timestamp: time.Now().UTC()}
}
