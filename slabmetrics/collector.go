package slabmetrics

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/slabkit"
)

const (
	sourcePool     = "pool"
	sourceFallback = "fallback"
)

// Collector implements slabkit.MetricsCollector and prometheus.Collector.
type Collector struct {
	allocs   *prometheus.CounterVec
	deallocs *prometheus.CounterVec

	slots          *prometheus.Desc
	allocated      *prometheus.Desc
	free           *prometheus.Desc
	regionBytes    *prometheus.Desc
	fallbackAllocs *prometheus.Desc

	allocator atomic.Pointer[slabkit.Allocator]

	labels sync.Map // int -> string
}

// New creates a Collector whose metric names start with namespace.
func New(namespace string) *Collector {
	classLabel := []string{"slot_size"}
	return &Collector{
		allocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocs_total",
			Help:      "Total allocations by slot size and source.",
		}, []string{"slot_size", "source"}),
		deallocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deallocs_total",
			Help:      "Total deallocations by slot size and source.",
		}, []string{"slot_size", "source"}),
		slots: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "class", "slots"),
			"Slots in the class region.", classLabel, nil),
		allocated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "class", "allocated_slots"),
			"Slots currently handed out.", classLabel, nil),
		free: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "class", "free_slots"),
			"Slots currently on the free list.", classLabel, nil),
		regionBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "class", "region_bytes"),
			"Bytes covered by the class slots.", classLabel, nil),
		fallbackAllocs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "class", "fallback_allocs_total"),
			"Allocations served by the fallback allocator.", classLabel, nil),
	}
}

// Bind makes Collect report the classes of a. It may be called after a was
// built with this Collector as its MetricsCollector.
func (c *Collector) Bind(a *slabkit.Allocator) {
	c.allocator.Store(a)
}

func (c *Collector) label(slotSize int) string {
	if v, ok := c.labels.Load(slotSize); ok {
		return v.(string)
	}
	s := strconv.Itoa(slotSize)
	c.labels.Store(slotSize, s)
	return s
}

func source(fallback bool) string {
	if fallback {
		return sourceFallback
	}
	return sourcePool
}

// RecordAlloc implements slabkit.MetricsCollector.
func (c *Collector) RecordAlloc(slotSize int, fallback bool) {
	c.allocs.WithLabelValues(c.label(slotSize), source(fallback)).Inc()
}

// RecordDealloc implements slabkit.MetricsCollector.
func (c *Collector) RecordDealloc(slotSize int, fallback bool) {
	c.deallocs.WithLabelValues(c.label(slotSize), source(fallback)).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.allocs.Describe(ch)
	c.deallocs.Describe(ch)
	ch <- c.slots
	ch <- c.allocated
	ch <- c.free
	ch <- c.regionBytes
	ch <- c.fallbackAllocs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.allocs.Collect(ch)
	c.deallocs.Collect(ch)

	a := c.allocator.Load()
	if a == nil {
		return
	}
	for _, s := range a.Stats() {
		l := c.label(s.SlotSize)
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(s.SlotCount), l)
		ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(s.Allocated), l)
		ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(s.Free), l)
		ch <- prometheus.MustNewConstMetric(c.regionBytes, prometheus.GaugeValue, float64(s.RegionBytes), l)
		ch <- prometheus.MustNewConstMetric(c.fallbackAllocs, prometheus.CounterValue, float64(s.FallbackAllocs), l)
	}
}

var (
	_ slabkit.MetricsCollector = (*Collector)(nil)
	_ prometheus.Collector     = (*Collector)(nil)
)
