package demuxcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsFacade polls a Cache's already-locking public methods on an
// interval and republishes them as Prometheus collectors, per
// SPEC_FULL.md §4.9. It never reaches into Cache/StreamQueue internals
// and holds no lock of its own beyond what Cache already provides.
type MetricsFacade struct {
	cache *Cache

	fwBytes    prometheus.Gauge
	bwBytes    prometheus.Gauge
	tsDuration prometheus.Gauge
	bitrate    *prometheus.GaugeVec
	pruneTotal prometheus.Counter

	stop chan struct{}
}

// NewMetricsFacade registers its collectors on reg and returns a facade
// ready to Start against cache.
func NewMetricsFacade(cache *Cache, reg prometheus.Registerer) *MetricsFacade {
	m := &MetricsFacade{
		cache: cache,
		fwBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demux_cache_fw_bytes",
			Help: "Total forward (read-ahead) buffer bytes across all selected streams.",
		}),
		bwBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demux_cache_bw_bytes",
			Help: "Total back-buffer bytes across all streams.",
		}),
		tsDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demux_cache_ts_duration_seconds",
			Help: "Forward-buffered duration reported by the reader-state query.",
		}),
		bitrate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "demux_cache_bitrate_bps",
			Help: "Per-kind bitrate estimate, sampled at keyframe boundaries.",
		}, []string{"kind"}),
		pruneTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demux_cache_prune_total",
			Help: "Number of scrape intervals during which back-buffer bytes decreased.",
		}),
		stop: make(chan struct{}),
	}

	reg.MustRegister(m.fwBytes, m.bwBytes, m.tsDuration, m.bitrate, m.pruneTotal)
	return m
}

// Start scrapes the cache every interval until Stop is called.
func (m *MetricsFacade) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastBw float64
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				st := m.cache.ReaderState()
				m.tsDuration.Set(st.TSDuration)

				fw, bw := m.cache.BufferBytes()
				m.fwBytes.Set(float64(fw))
				m.bwBytes.Set(float64(bw))
				if float64(bw) < lastBw {
					m.pruneTotal.Inc()
				}
				lastBw = float64(bw)

				for kind, bps := range m.cache.BitrateStats() {
					if bps >= 0 {
						m.bitrate.WithLabelValues(kind.String()).Set(bps)
					}
				}
			}
		}
	}()
}

// Stop halts the scrape goroutine. Safe to call once.
func (m *MetricsFacade) Stop() { close(m.stop) }
