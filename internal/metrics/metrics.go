// Package metrics exposes Prometheus metrics for the chat client.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recorder records coordinator, network and presence metrics.
type Recorder struct {
	peers        *prometheus.GaugeVec
	unread       prometheus.Gauge
	messages     *prometheus.CounterVec
	reconciled   prometheus.Counter
	reconcileErr prometheus.Counter
	reconcileDur *prometheus.HistogramVec
	backoff      *prometheus.GaugeVec
	connects     *prometheus.CounterVec
	handshakes   *prometheus.CounterVec
	clientStatus *prometheus.GaugeVec
	roomMembers  prometheus.Gauge
	nameLookups  *prometheus.CounterVec
}

// NewRecorder registers metrics with the provided registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		peers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ringchat_peers",
			Help: "Known peers by connection state",
		}, []string{"state"}),
		unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ringchat_unread_sessions",
			Help: "Chat sessions with unread messages",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringchat_messages_total",
			Help: "Chat messages by direction",
		}, []string{"direction"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringchat_reconcile_total",
			Help: "Successful peer-list reconciliations",
		}),
		reconcileErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringchat_reconcile_errors_total",
			Help: "Failed peer-list fetches",
		}),
		reconcileDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringchat_reconcile_duration_seconds",
			Help:    "Peer-list fetch and merge latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		backoff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ringchat_backoff_seconds",
			Help: "Current retry backoff per component",
		}, []string{"component"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringchat_connect_total",
			Help: "Peer connect attempts by result",
		}, []string{"result"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringchat_handshake_total",
			Help: "Manual signaling steps by step and result",
		}, []string{"step", "result"}),
		clientStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ringchat_client_status",
			Help: "Network client status (1 for the current status)",
		}, []string{"status"}),
		roomMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ringchat_room_members",
			Help: "Members in the public room",
		}),
		nameLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringchat_name_lookups_total",
			Help: "External name lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(
		r.peers,
		r.unread,
		r.messages,
		r.reconciled,
		r.reconcileErr,
		r.reconcileDur,
		r.backoff,
		r.connects,
		r.handshakes,
		r.clientStatus,
		r.roomMembers,
		r.nameLookups,
	)
	return r
}

// Handler returns HTTP handler serving /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Serve exposes reg on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SetPeers records the number of peers in each state.
func (r *Recorder) SetPeers(byState map[string]int) {
	if r == nil {
		return
	}
	r.peers.Reset()
	for state, n := range byState {
		r.peers.WithLabelValues(state).Set(float64(n))
	}
}

// SetUnread records the number of unread sessions.
func (r *Recorder) SetUnread(n int) {
	if r == nil {
		return
	}
	r.unread.Set(float64(n))
}

// ObserveMessage counts a message; direction is "in" or "out".
func (r *Recorder) ObserveMessage(direction string) {
	if r == nil {
		return
	}
	r.messages.WithLabelValues(direction).Inc()
}

// ObserveReconciled records a successful reconciliation.
func (r *Recorder) ObserveReconciled(d time.Duration) {
	if r == nil {
		return
	}
	r.reconciled.Inc()
	r.reconcileDur.WithLabelValues("success").Observe(d.Seconds())
}

// ObserveReconcileError records a failed peer-list fetch.
func (r *Recorder) ObserveReconcileError(d time.Duration) {
	if r == nil {
		return
	}
	r.reconcileErr.Inc()
	r.reconcileDur.WithLabelValues("error").Observe(d.Seconds())
}

// ObserveBackoff records the current backoff for component.
func (r *Recorder) ObserveBackoff(component string, d time.Duration) {
	if r == nil {
		return
	}
	r.backoff.WithLabelValues(component).Set(d.Seconds())
}

// ObserveConnect counts a peer connect attempt.
func (r *Recorder) ObserveConnect(result string) {
	if r == nil {
		return
	}
	r.connects.WithLabelValues(result).Inc()
}

// ObserveHandshake counts a manual signaling step.
func (r *Recorder) ObserveHandshake(step, result string) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(step, result).Inc()
}

// SetClientStatus marks status as the current client status.
func (r *Recorder) SetClientStatus(status string) {
	if r == nil {
		return
	}
	r.clientStatus.Reset()
	r.clientStatus.WithLabelValues(status).Set(1)
}

// SetRoomMembers records the public room size.
func (r *Recorder) SetRoomMembers(n int) {
	if r == nil {
		return
	}
	r.roomMembers.Set(float64(n))
}

// ObserveNameLookup counts an external name lookup.
func (r *Recorder) ObserveNameLookup(result string) {
	if r == nil {
		return
	}
	r.nameLookups.WithLabelValues(result).Inc()
}
