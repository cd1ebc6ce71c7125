package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/blockforge/clipio/internal/stats"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry != prometheus.DefaultRegisterer {
		t.Error("registry should default to prometheus.DefaultRegisterer")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricDecodes, 5)
	c.IncCounter(stats.MetricDecodes, 3)

	f := gather(t, reg, stats.MetricDecodes)
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if got, want := f.GetHelp(), stats.Help(stats.MetricDecodes); got != want {
		t.Errorf("help = %q, want %q", got, want)
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricCacheSize, 42)
	c.SetGauge(stats.MetricCacheSize, 40)

	f := gather(t, reg, stats.MetricCacheSize)
	if got := f.GetMetric()[0].GetGauge().GetValue(); got != 40 {
		t.Errorf("gauge value = %v, want 40", got)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricDecodeSeconds, 0.5)
	c.ObserveHistogram(stats.MetricDecodeSeconds, 1.5)
	c.ObserveHistogram(stats.MetricArchiveBytes, 4096)

	h := gather(t, reg, stats.MetricDecodeSeconds).GetMetric()[0].GetHistogram()
	if got := h.GetSampleCount(); got != 2 {
		t.Errorf("histogram count = %v, want 2", got)
	}
	if got := len(h.GetBucket()); got != len(prometheus.DefBuckets) {
		t.Errorf("duration buckets = %d, want %d", got, len(prometheus.DefBuckets))
	}

	sizes := gather(t, reg, stats.MetricArchiveBytes).GetMetric()[0].GetHistogram()
	if got := len(sizes.GetBucket()); got != len(byteBuckets) {
		t.Errorf("size buckets = %d, want %d", got, len(byteBuckets))
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricCacheHits, 1)
				c.SetGauge(stats.MetricCacheSize, int64(j))
				c.ObserveHistogram(stats.MetricDecodeSeconds, float64(j))
			}
		}()
	}
	wg.Wait()

	if got := gather(t, reg, stats.MetricCacheHits).GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("counter value = %v, want 1000", got)
	}
	if got := gather(t, reg, stats.MetricDecodeSeconds).GetMetric()[0].GetHistogram().GetSampleCount(); got != 1000 {
		t.Errorf("histogram count = %v, want 1000", got)
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: stats.MetricUploads,
		Help: "registered elsewhere",
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter(stats.MetricUploads, 5)

	if got := gather(t, reg, stats.MetricUploads).GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}

func TestHelp_Unknown(t *testing.T) {
	if got := stats.Help("custom_metric"); got != "custom_metric" {
		t.Errorf("Help() = %q, want the metric name", got)
	}
}
