package analysiscache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity.
type Metrics struct {
	Lookups *prometheus.CounterVec
	Writes  *prometheus.CounterVec
	Swept   prometheus.Counter
}

// Write results recorded in ccr_cache_writes_total.
const (
	writeOK              = "ok"
	writeError           = "error"
	writeSkipped         = "skipped"
	writeUnauthenticated = "unauthenticated"
)

// NewMetrics creates the cache metrics and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccr_cache_lookups_total",
				Help: "Analysis cache lookups by result",
			},
			[]string{"result"},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccr_cache_writes_total",
				Help: "Analysis cache writes by result",
			},
			[]string{"result"},
		),
		Swept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ccr_cache_swept_total",
				Help: "Expired analysis cache entries deleted by the sweep",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Lookups, m.Writes, m.Swept)
	}
	return m
}

func (m *Metrics) observeLookup(o outcome) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeWrite(result string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Swept.Add(float64(n))
}
