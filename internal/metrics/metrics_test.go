package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ringchat/internal/metrics"
)

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *metrics.Recorder
	r.SetPeers(map[string]int{"connected": 1})
	r.ObserveMessage("in")
	r.ObserveReconciled(time.Millisecond)
	r.SetClientStatus("connected")
}

func TestRecorder_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.NewRecorder(reg)

	r.ObserveMessage("in")
	r.ObserveMessage("in")
	r.ObserveMessage("out")
	r.SetClientStatus("connecting")
	r.SetClientStatus("connected")

	if got := counterValue(t, reg, "ringchat_messages_total", "in"); got != 2 {
		t.Fatalf("inbound messages = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(reg, "ringchat_client_status"); n != 1 {
		t.Fatalf("client status series = %d, want 1", n)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("series %s{%s} not found", name, label)
	return 0
}
