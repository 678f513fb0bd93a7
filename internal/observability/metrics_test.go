package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewSimCollector_RegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	c.ObserveTick(3 * time.Millisecond)
	c.ObserveTick(5 * time.Millisecond)
	c.SetWorldCounts(4, 2, 7, 265.5)
	c.IncStageError("orchestrator")
	c.IncTransfer("charge")
	c.IncTransfer("charge")
	c.IncTransfer("harvest")
	c.IncTaskAssigned()
	c.IncTaskCompleted()
	c.AddTradedVolume(1.25)
	c.AddTradedVolume(0.75)

	if mf := gatherFamily(t, reg, "sim_ticks_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Errorf("expected 2 ticks, got %v", mf)
	}
	if mf := gatherFamily(t, reg, "sim_satellites"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Errorf("satellite gauge wrong: %v", mf)
	}
	if mf := gatherFamily(t, reg, "sim_total_energy"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 265.5 {
		t.Errorf("energy gauge wrong: %v", mf)
	}
	if mf := gatherFamily(t, reg, "sim_tick_duration_seconds"); mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Errorf("tick histogram wrong: %v", mf)
	}
	if mf := gatherFamily(t, reg, "sim_tasks_assigned_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Errorf("assigned counter wrong: %v", mf)
	}
	if mf := gatherFamily(t, reg, "sim_traded_volume_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Errorf("traded volume wrong: %v", mf)
	}

	mf := gatherFamily(t, reg, "sim_energy_transfers_total")
	if mf == nil || len(mf.GetMetric()) != 2 {
		t.Fatalf("expected two transfer series, got %v", mf)
	}
	for _, m := range mf.GetMetric() {
		switch m.GetLabel()[0].GetValue() {
		case "charge":
			if m.GetCounter().GetValue() != 2 {
				t.Errorf("charge counter %f, want 2", m.GetCounter().GetValue())
			}
		case "harvest":
			if m.GetCounter().GetValue() != 1 {
				t.Errorf("harvest counter %f, want 1", m.GetCounter().GetValue())
			}
		}
	}
}

func TestNewSimCollector_ReregistrationIsTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewSimCollector(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewSimCollector(reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}

func TestNilCollector_IsSafe(t *testing.T) {
	var c *SimCollector
	c.ObserveTick(time.Millisecond)
	c.IncStageError("delegator")
	c.SetWorldCounts(1, 1, 1, 1)
	c.IncTransfer("charge")
	c.IncTaskAssigned()
	c.IncTaskCompleted()
	c.AddTradedVolume(1)
}
