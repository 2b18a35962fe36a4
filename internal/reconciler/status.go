package reconciler

import (
	"slices"
	"time"
)

// Status summarises the reconciler's history for monitoring.
type Status struct {
	Running          bool          `json:"running"`
	Passes           int64         `json:"passes"`
	FailedPasses     int64         `json:"failedPasses"`
	Dropped          int64         `json:"dropped"`
	Moved            int64         `json:"moved"`
	LastPassAt       time.Time     `json:"lastPassAt,omitempty"`
	LastPassDuration time.Duration `json:"lastPassDuration,omitempty"`
	LastSuccessAt    time.Time     `json:"lastSuccessAt,omitempty"`
	LastError        string        `json:"lastError,omitempty"`
	Retries          int           `json:"retries"`
}

// Status returns a snapshot of the reconciler's counters.
func (r *Reconciler) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.status
	s.Running = r.running
	return s
}

func (r *Reconciler) record(result PassResult, err error) {
	r.mu.Lock()
	listeners := slices.Clone(r.listeners)

	r.status.Passes++
	r.status.Dropped += int64(len(result.Dropped))
	r.status.Moved += int64(len(result.Moved))
	r.status.LastPassAt = result.StartedAt
	r.status.LastPassDuration = result.Duration

	switch {
	case err != nil:
		r.status.FailedPasses++
		r.status.LastError = err.Error()
	case result.Failed():
		r.status.FailedPasses++
		r.status.LastError = result.Failures[0].Error
	default:
		r.status.LastSuccessAt = result.StartedAt.Add(result.Duration)
		r.status.LastError = ""
	}
	r.mu.Unlock()

	if err == nil && result.Changed() {
		for _, fn := range listeners {
			fn(result)
		}
	}
}

func (r *Reconciler) setRetries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Retries = n
}
