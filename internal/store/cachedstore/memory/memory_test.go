package memory

import (
	"testing"

	"github.com/blockforge/clipio/internal/store/cachedstore/cachestrategy/lru"
)

type countingCollector struct {
	counters map[string]int64
	gauges   map[string]int64
}

func newCountingCollector() *countingCollector {
	return &countingCollector{counters: map[string]int64{}, gauges: map[string]int64{}}
}

func (c *countingCollector) IncCounter(name string, delta int64) { c.counters[name] += delta }
func (c *countingCollector) SetGauge(name string, value int64)   { c.gauges[name] = value }
func (c *countingCollector) ObserveHistogram(string, float64)    {}

func TestBackend_GetSet(t *testing.T) {
	strategy, err := lru.New(10)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	b := New(strategy, nil)

	if _, ok := b.Get("a.schematic"); ok {
		t.Error("Get() should return false for missing key")
	}

	b.Set("a.schematic", []byte("hello"))
	data, ok := b.Get("a.schematic")
	if !ok {
		t.Error("Get() should return true after Set")
	}
	if string(data) != "hello" {
		t.Errorf("Get() = %q, want %q", data, "hello")
	}
}

func TestBackend_StatsAndMetrics(t *testing.T) {
	strategy, err := lru.New(10)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	c := newCountingCollector()
	b := New(strategy, c)

	b.Set("a", []byte("data"))
	b.Get("a")
	b.Get("b")

	s := b.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, size 1", s)
	}
	if c.counters["clipio_cache_hits_total"] != 1 || c.counters["clipio_cache_misses_total"] != 1 {
		t.Errorf("counters = %v", c.counters)
	}
	if c.gauges["clipio_cache_size"] != 1 {
		t.Errorf("gauges = %v", c.gauges)
	}
}

func TestBackend_LRUEviction(t *testing.T) {
	strategy, err := lru.New(2)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	b := New(strategy, nil)

	b.Set("one", []byte("1"))
	b.Set("two", []byte("2"))
	b.Set("three", []byte("3")) // Evicts "one".

	if _, ok := b.Get("one"); ok {
		t.Error("Get(one) should return false after eviction")
	}
	if _, ok := b.Get("two"); !ok {
		t.Error("Get(two) should return true")
	}
	if _, ok := b.Get("three"); !ok {
		t.Error("Get(three) should return true")
	}
}

func TestLRU_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := lru.New(capacity); err == nil {
			t.Errorf("lru.New(%d) should return error", capacity)
		}
	}
}
