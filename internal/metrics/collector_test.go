package wfdmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	wfdmetrics "github.com/miraclecast/miraclecast/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	if c.Sessions == nil {
		t.Error("Sessions is nil")
	}
	if c.Peers == nil {
		t.Error("Peers is nil")
	}
	if c.Groups == nil {
		t.Error("Groups is nil")
	}
	if c.RTSPSent == nil {
		t.Error("RTSPSent is nil")
	}
	if c.RTSPReceived == nil {
		t.Error("RTSPReceived is nil")
	}
	if c.SupplicantRestarts == nil {
		t.Error("SupplicantRestarts is nil")
	}
	if c.DHCPLeaseEvents == nil {
		t.Error("DHCPLeaseEvents is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestRegisterUnregisterSession(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	c.RegisterSession("wlan0")

	val := gaugeValue(t, c.Sessions, "wlan0")
	if val != 1 {
		t.Errorf("after RegisterSession: sessions gauge = %v, want 1", val)
	}

	c.RegisterSession("wlan1")

	val = gaugeValue(t, c.Sessions, "wlan1")
	if val != 1 {
		t.Errorf("after second RegisterSession: wlan1 gauge = %v, want 1", val)
	}

	c.UnregisterSession("wlan0")

	val = gaugeValue(t, c.Sessions, "wlan0")
	if val != 0 {
		t.Errorf("after UnregisterSession: sessions gauge = %v, want 0", val)
	}

	val = gaugeValue(t, c.Sessions, "wlan1")
	if val != 1 {
		t.Errorf("wlan1 gauge = %v, want 1 (should be unaffected)", val)
	}
}

func TestPeerAndGroupGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	c.SetPeerCount("wlan0", 3)
	if val := gaugeValue(t, c.Peers, "wlan0"); val != 3 {
		t.Errorf("Peers = %v, want 3", val)
	}

	c.SetGroupFormed("wlan0", true)
	if val := gaugeValue(t, c.Groups, "wlan0"); val != 1 {
		t.Errorf("Groups = %v, want 1", val)
	}

	c.SetGroupFormed("wlan0", false)
	if val := gaugeValue(t, c.Groups, "wlan0"); val != 0 {
		t.Errorf("Groups = %v, want 0", val)
	}
}

func TestRTSPCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	c.IncRTSPSent("wlan0", "M1")
	c.IncRTSPSent("wlan0", "M1")
	c.IncRTSPSent("wlan0", "M1")

	val := counterValue(t, c.RTSPSent, "wlan0", "M1")
	if val != 3 {
		t.Errorf("RTSPSent = %v, want 3", val)
	}

	c.IncRTSPReceived("wlan0", "M2")
	c.IncRTSPReceived("wlan0", "M2")

	val = counterValue(t, c.RTSPReceived, "wlan0", "M2")
	if val != 2 {
		t.Errorf("RTSPReceived = %v, want 2", val)
	}
}

func TestSupplicantRestarts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	c.IncSupplicantRestart("wlan0")
	c.IncSupplicantRestart("wlan0")

	val := counterValue(t, c.SupplicantRestarts, "wlan0")
	if val != 2 {
		t.Errorf("SupplicantRestarts = %v, want 2", val)
	}
}

func TestDHCPLeaseEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wfdmetrics.NewCollector(reg)

	c.IncDHCPLeaseEvent("wlan0", "lease_group")
	c.IncDHCPLeaseEvent("wlan0", "lease_go")
	c.IncDHCPLeaseEvent("wlan0", "lease_go")

	if val := counterValue(t, c.DHCPLeaseEvents, "wlan0", "lease_group"); val != 1 {
		t.Errorf("DHCPLeaseEvents(lease_group) = %v, want 1", val)
	}
	if val := counterValue(t, c.DHCPLeaseEvents, "wlan0", "lease_go"); val != 2 {
		t.Errorf("DHCPLeaseEvents(lease_go) = %v, want 2", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// gaugeValue reads the current value of a GaugeVec with the given labels.
func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
