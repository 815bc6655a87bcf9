// Package slabmetrics exports slabkit allocator metrics to Prometheus.
//
//	c := slabmetrics.New("slabkit")
//	a, _ := slabkit.New(slabkit.WithMetricsCollector(c))
//	c.Bind(a)
//	prometheus.MustRegister(c)
//
// Alloc and Dealloc calls are counted per slot size and source (pool or
// fallback). Class occupancy is read from the bound allocator at scrape time.
package slabmetrics
