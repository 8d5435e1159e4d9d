// Package metrics is flame's metrics collaborator: it is driven purely
// by the events the core engine produces (send, receive, timeout,
// bad_receive, net_error, tcp_connection) and is responsible for
// aggregating and persisting them. The core never inspects the schema.
package metrics

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sink is the narrow interface the core engine (trafgen, transports)
// depends on. A Recorder implements it; tests can substitute a fake.
type Sink interface {
	Send(bytesSent, count, inFlightNow int)
	Receive(sendTime time.Time, rcode int, inFlightNow int)
	Timeout(inFlightNow int)
	BadReceive(inFlightNow int)
	NetError()
	TCPConnection()
	InFlightCeiling()
}

// ConfigEcho captures the resolved run configuration for the JSON dump.
type ConfigEcho struct {
	Target      string `json:"target"`
	Family      string `json:"family"`
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	Concurrency int    `json:"concurrency"`
	BatchCount  int    `json:"batch_count"`
	SDelayMS    int    `json:"s_delay_ms"`
	RTimeoutSec int    `json:"r_timeout_sec"`
	Loops       int    `json:"loops"`
	QPS         uint64 `json:"qps"`
	Generator   string `json:"generator"`
}

// Counters holds the raw event tallies.
type Counters struct {
	Sends            uint64 `json:"sends"`
	BytesSent        uint64 `json:"bytes_sent"`
	Receives         uint64 `json:"receives"`
	Timeouts         uint64 `json:"timeouts"`
	BadReceives      uint64 `json:"bad_receives"`
	NetErrors        uint64 `json:"net_errors"`
	TCPConnections   uint64 `json:"tcp_connections"`
	InFlightCeilings uint64 `json:"in_flight_ceilings"`
}

// Latency summarizes the observed response-latency distribution.
type Latency struct {
	Count  uint64  `json:"count"`
	MinUs  uint64  `json:"min_us"`
	MaxUs  uint64  `json:"max_us"`
	MeanUs float64 `json:"mean_us"`
	P50Us  uint64  `json:"p50_us"`
	P90Us  uint64  `json:"p90_us"`
	P99Us  uint64  `json:"p99_us"`
}

// Snapshot is the full persisted/reported shape of one flame run.
type Snapshot struct {
	RunID       string            `json:"run_id"`
	CommandLine []string          `json:"command_line"`
	Config      ConfigEcho        `json:"config"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Counters    Counters          `json:"counters"`
	Latency     Latency           `json:"latency"`
	Rcodes      map[string]uint64 `json:"rcodes"`
}

// Recorder is flame's concrete Sink: in-memory counters plus an optional
// live Prometheus exporter (see internal/metricsserver), finalized to a
// JSON Snapshot on shutdown.
type Recorder struct {
	runID       string
	cmdline     []string
	config      ConfigEcho
	startedAt   time.Time
	finishedAt  time.Time
	hist        *histogram
	rcodes      *rcodeTally
	sends       uint64
	bytesSent   uint64
	receives    uint64
	timeouts    uint64
	badReceives uint64
	netErrors   uint64
	tcpConns    uint64
	ceilings    uint64
	prom        *promHooks
}

// New creates a Recorder stamped with a fresh run ID.
func New(cmdline []string, cfg ConfigEcho) *Recorder {
	return &Recorder{
		runID:     uuid.NewString(),
		cmdline:   cmdline,
		config:    cfg,
		startedAt: time.Now(),
		hist:      newHistogram(),
		rcodes:    newRcodeTally(),
	}
}

// AttachPrometheus mirrors every event into h's collectors. The Runner
// calls it when -metrics-addr is set, and internal/metricsserver serves
// the registry those collectors live in.
func (r *Recorder) AttachPrometheus(h *promHooks) {
	r.prom = h
}

func (r *Recorder) Send(bytesSent, count, inFlightNow int) {
	atomic.AddUint64(&r.sends, uint64(count))
	atomic.AddUint64(&r.bytesSent, uint64(bytesSent))
	if r.prom != nil {
		r.prom.send(bytesSent, count, inFlightNow)
	}
}

func (r *Recorder) Receive(sendTime time.Time, rcode int, inFlightNow int) {
	atomic.AddUint64(&r.receives, 1)
	r.hist.observe(uint64(time.Since(sendTime).Microseconds()))
	r.rcodes.incr(rcode)
	if r.prom != nil {
		r.prom.receive(sendTime, rcode, inFlightNow)
	}
}

func (r *Recorder) Timeout(inFlightNow int) {
	atomic.AddUint64(&r.timeouts, 1)
	if r.prom != nil {
		r.prom.timeout(inFlightNow)
	}
}

func (r *Recorder) BadReceive(inFlightNow int) {
	atomic.AddUint64(&r.badReceives, 1)
	if r.prom != nil {
		r.prom.badReceive(inFlightNow)
	}
}

func (r *Recorder) NetError() {
	atomic.AddUint64(&r.netErrors, 1)
	if r.prom != nil {
		r.prom.netError()
	}
}

func (r *Recorder) TCPConnection() {
	atomic.AddUint64(&r.tcpConns, 1)
	if r.prom != nil {
		r.prom.tcpConnection()
	}
}

func (r *Recorder) InFlightCeiling() {
	atomic.AddUint64(&r.ceilings, 1)
	if r.prom != nil {
		r.prom.inFlightCeiling()
	}
}

// Snapshot finalizes the run's end timestamp and builds the persisted
// view. Safe to call once, at shutdown.
func (r *Recorder) Snapshot() Snapshot {
	r.finishedAt = time.Now()
	count, min, max, mean := r.hist.snapshot()
	return Snapshot{
		RunID:       r.runID,
		CommandLine: r.cmdline,
		Config:      r.config,
		StartedAt:   r.startedAt,
		FinishedAt:  r.finishedAt,
		Counters: Counters{
			Sends:            atomic.LoadUint64(&r.sends),
			BytesSent:        atomic.LoadUint64(&r.bytesSent),
			Receives:         atomic.LoadUint64(&r.receives),
			Timeouts:         atomic.LoadUint64(&r.timeouts),
			BadReceives:      atomic.LoadUint64(&r.badReceives),
			NetErrors:        atomic.LoadUint64(&r.netErrors),
			TCPConnections:   atomic.LoadUint64(&r.tcpConns),
			InFlightCeilings: atomic.LoadUint64(&r.ceilings),
		},
		Latency: Latency{
			Count:  count,
			MinUs:  min,
			MaxUs:  max,
			MeanUs: mean,
			P50Us:  r.hist.percentile(0.50),
			P90Us:  r.hist.percentile(0.90),
			P99Us:  r.hist.percentile(0.99),
		},
		Rcodes: r.rcodes.all(),
	}
}

// WriteJSON persists the final snapshot to path.
func (r *Recorder) WriteJSON(path string) error {
	snap := r.Snapshot()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
