package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ringchat/internal/domain"
)

// reconciler periodically merges the client's peer list into the state.
type reconciler struct {
	c              *Coordinator
	nc             domain.NetworkClient
	gen            uint64
	interval       time.Duration
	maxBackoff     time.Duration
	currentBackoff time.Duration
}

func newReconciler(c *Coordinator, nc domain.NetworkClient, gen uint64) *reconciler {
	return &reconciler{
		c:          c,
		nc:         nc,
		gen:        gen,
		interval:   c.cfg.ReconcileInterval,
		maxBackoff: c.cfg.MaxBackoff,
	}
}

// Run reconciles every interval until ctx is cancelled.
func (r *reconciler) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if r.currentBackoff > 0 {
			r.c.metrics.ObserveBackoff("reconciler", r.currentBackoff)
			r.c.log.Debug("reconciler backoff", zap.Duration("backoff", r.currentBackoff))
			backoffTimer := time.NewTimer(r.currentBackoff)
			select {
			case <-ctx.Done():
				backoffTimer.Stop()
				return
			case <-backoffTimer.C:
			}
		}

		if err := r.c.refresh(ctx, r.nc, r.gen); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.c.log.Warn("peer list fetch failed", zap.Error(err))
			r.bumpBackoff()
		} else {
			r.resetBackoff()
		}
	}
}

// RunOnce performs a single reconciliation.
func (r *reconciler) RunOnce(ctx context.Context) {
	if err := r.c.refresh(ctx, r.nc, r.gen); err != nil {
		r.c.log.Warn("peer list fetch failed", zap.Error(err))
	}
}

func (r *reconciler) bumpBackoff() {
	if r.currentBackoff == 0 {
		r.currentBackoff = min(r.interval, r.maxBackoff)
		return
	}
	r.currentBackoff = min(r.currentBackoff*2, r.maxBackoff)
}

func (r *reconciler) resetBackoff() {
	if r.currentBackoff != 0 {
		r.c.metrics.ObserveBackoff("reconciler", 0)
	}
	r.currentBackoff = 0
}

// refresh fetches the peer list and applies it if gen is still current.
func (c *Coordinator) refresh(ctx context.Context, nc domain.NetworkClient, gen uint64) error {
	start := time.Now()
	peers, err := nc.RequestPeerList(ctx)
	if err != nil {
		c.metrics.ObserveReconcileError(time.Since(start))
		return err
	}
	c.dispatchIfCurrent(gen, Reconcile{Peers: peers})
	c.metrics.ObserveReconciled(time.Since(start))
	return nil
}
