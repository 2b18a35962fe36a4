package reconciler

import (
	"context"
	"time"

	"vapi/pkg/logging"
)

// Start runs an initial pass in the background and then a pass whenever
// Trigger is called or the configured interval elapses. A failed pass is
// retried with exponential backoff.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.loop(ctx, r.stopCh, r.doneCh)

	if r.options.Interval > 0 {
		logging.Info("Reconciler", "Started, passes every %v and on change", r.options.Interval)
	} else {
		logging.Info("Reconciler", "Started, passes on change")
	}
	r.Trigger()
	return nil
}

// Trigger requests a pass. Requests made while one is already pending are
// coalesced into it. It never blocks.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for a running pass to finish.
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
	logging.Info("Reconciler", "Stopped")
	return nil
}

func (r *Reconciler) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var tick <-chan time.Time
	if r.options.Interval > 0 {
		ticker := time.NewTicker(r.options.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-r.trigger:
		case <-tick:
		case <-retry.C:
		}

		if r.runPass(ctx, stopCh) {
			attempt = 0
			retry.Stop()
			r.setRetries(0)
			continue
		}

		attempt++
		backoff := r.calculateBackoff(attempt)
		retry.Reset(backoff)
		r.setRetries(attempt)
		logging.Warn("Reconciler", "Pass failed, retrying in %v (attempt %d)", backoff, attempt)
	}
}

// runPass runs one bounded pass, cancelled early if the loop is stopped.
func (r *Reconciler) runPass(ctx context.Context, stopCh chan struct{}) bool {
	passCtx, cancel := context.WithTimeout(ctx, r.options.PassTimeout)
	defer cancel()

	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-passCtx.Done():
		}
	}()

	result, err := r.Reconcile(passCtx)
	return err == nil && !result.Failed()
}

// calculateBackoff doubles the initial backoff per attempt up to the maximum.
func (r *Reconciler) calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return r.options.MaxBackoff
	}
	backoff := r.options.InitialBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > r.options.MaxBackoff || backoff <= 0 {
		backoff = r.options.MaxBackoff
	}
	return backoff
}
