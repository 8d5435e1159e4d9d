package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promHooks mirrors live run state into Prometheus collectors so
// -metrics-addr can expose /metrics mid-run, without the core engine
// depending on the Prometheus client library directly.
type promHooks struct {
	sendsTotal     prometheus.Counter
	bytesTotal     prometheus.Counter
	receivesTotal  prometheus.Counter
	timeoutsTotal  prometheus.Counter
	badRecvTotal   prometheus.Counter
	netErrorsTotal prometheus.Counter
	tcpConnsTotal  prometheus.Counter
	ceilingsTotal  prometheus.Counter
	latencySeconds prometheus.Histogram
	inFlightGauge  prometheus.Gauge
	rcodesTotal    *prometheus.CounterVec
}

// NewPromHooks registers flame's collectors against reg and returns a
// handle suitable for Recorder.AttachPrometheus.
func NewPromHooks(reg prometheus.Registerer) *promHooks {
	h := &promHooks{
		sendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_sends_total", Help: "DNS queries sent.",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_bytes_sent_total", Help: "Bytes sent on the wire.",
		}),
		receivesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_receives_total", Help: "DNS responses received.",
		}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_timeouts_total", Help: "Queries that timed out unanswered.",
		}),
		badRecvTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_bad_receives_total", Help: "Responses that failed to decode or match a pending query.",
		}),
		netErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_net_errors_total", Help: "Transport-level errors (send/recv/dial failures).",
		}),
		tcpConnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_tcp_connections_total", Help: "TCP sessions opened.",
		}),
		ceilingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flame_in_flight_ceiling_total", Help: "Times a TrafGen hit the 65536 in-flight transaction ID ceiling.",
		}),
		latencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flame_latency_seconds",
			Help:    "Response latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 20),
		}),
		inFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flame_in_flight", Help: "Outstanding queries awaiting a response, as last reported by any one TrafGen.",
		}),
		rcodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flame_rcodes_total", Help: "Responses received, by rcode.",
		}, []string{"rcode"}),
	}
	reg.MustRegister(
		h.sendsTotal, h.bytesTotal, h.receivesTotal, h.timeoutsTotal,
		h.badRecvTotal, h.netErrorsTotal, h.tcpConnsTotal, h.ceilingsTotal,
		h.latencySeconds, h.inFlightGauge, h.rcodesTotal,
	)
	return h
}

func (h *promHooks) send(bytesSent, count, inFlightNow int) {
	h.sendsTotal.Add(float64(count))
	h.bytesTotal.Add(float64(bytesSent))
	h.inFlightGauge.Set(float64(inFlightNow))
}

func (h *promHooks) receive(sendTime time.Time, rcode int, inFlightNow int) {
	h.receivesTotal.Inc()
	h.latencySeconds.Observe(time.Since(sendTime).Seconds())
	h.rcodesTotal.WithLabelValues(rcodeName(rcode)).Inc()
	h.inFlightGauge.Set(float64(inFlightNow))
}

func (h *promHooks) timeout(inFlightNow int) {
	h.timeoutsTotal.Inc()
	h.inFlightGauge.Set(float64(inFlightNow))
}

func (h *promHooks) badReceive(inFlightNow int) {
	h.badRecvTotal.Inc()
	h.inFlightGauge.Set(float64(inFlightNow))
}

func (h *promHooks) netError() {
	h.netErrorsTotal.Inc()
}

func (h *promHooks) tcpConnection() {
	h.tcpConnsTotal.Inc()
}

func (h *promHooks) inFlightCeiling() {
	h.ceilingsTotal.Inc()
}
