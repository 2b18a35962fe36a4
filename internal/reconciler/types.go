package reconciler

import (
	"context"
	"time"

	"vapi/internal/catalog"
)

// ConfigSource is the view of the service configuration the reconciler needs.
type ConfigSource interface {
	ListNames(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*catalog.ServiceConfig, error)
	Put(ctx context.Context, name string, svc *catalog.ServiceConfig) error
	Delete(ctx context.Context, name string) (bool, error)
	MoveRecord(ctx context.Context, oldName, newName string) (bool, error)
}

// RenameKind tells whether an intent renames a service or one of its entities.
type RenameKind string

const (
	RenameService RenameKind = "service"
	RenameEntity  RenameKind = "entity"
)

// CollectionMove is one backing collection that has to follow a rename.
type CollectionMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RenameIntent is the journal record written before a rename touches anything.
// It is removed once the configuration and every collection have moved.
type RenameIntent struct {
	ID        string           `json:"id"`
	Kind      RenameKind       `json:"kind"`
	Service   string           `json:"service"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Moves     []CollectionMove `json:"moves,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Failure is an individual operation that failed during a pass.
type Failure struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	Error      string `json:"error"`
}

// PassResult summarises one reconciliation pass.
type PassResult struct {
	StartedAt time.Time        `json:"startedAt"`
	Duration  time.Duration    `json:"duration"`
	Dropped   []string         `json:"dropped,omitempty"`
	Moved     []CollectionMove `json:"moved,omitempty"`
	// Protected lists orphan candidates kept because their owner could not be read
	// or a pending rename still refers to them.
	Protected []string  `json:"protected,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Failed reports whether any individual operation of the pass failed.
func (p PassResult) Failed() bool {
	return len(p.Failures) > 0
}

// Changed reports whether the pass dropped or moved anything.
func (p PassResult) Changed() bool {
	return len(p.Dropped) > 0 || len(p.Moved) > 0
}

// Options tune the background loop started by Start.
type Options struct {
	// Interval re-runs a pass periodically. Zero means passes only run when triggered.
	Interval time.Duration

	// InitialBackoff is the delay before retrying a failed pass. Defaults to 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the retry delay. Defaults to 1m.
	MaxBackoff time.Duration

	// PassTimeout bounds a single pass. Defaults to 5m.
	PassTimeout time.Duration

	// Concurrency bounds parallel configuration reads. Defaults to 8.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = time.Minute
	}
	if o.PassTimeout <= 0 {
		o.PassTimeout = 5 * time.Minute
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	return o
}
