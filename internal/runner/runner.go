// Package runner orchestrates the full lifecycle of one flame
// invocation: resolving the target, constructing the shared
// TokenBucket/FlowScheduler, starting a fleet of TrafGens, and tearing
// everything down on signal, runtime limit, or generator exhaustion.
package runner

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ratelimiter "go.uber.org/ratelimit"

	"github.com/shmup/flamethrower/internal/logging"
	"github.com/shmup/flamethrower/internal/metrics"
	"github.com/shmup/flamethrower/internal/querygen"
	"github.com/shmup/flamethrower/internal/tokenbucket"
	"github.com/shmup/flamethrower/internal/trafgen"
)

// Protocol mirrors trafgen.Protocol at the CLI boundary.
type Protocol string

const (
	ProtoUDP Protocol = "udp"
	ProtoTCP Protocol = "tcp"
)

// Family selects the internet address family.
type Family string

const (
	FamilyInet  Family = "inet"
	FamilyInet6 Family = "inet6"
)

// Options is the fully-resolved set of knobs a Runner needs, one field
// per CLI flag; see cmd/flame for the mapping from flag to Options.
type Options struct {
	Target       string
	Port         int
	Family       Family
	Protocol     Protocol
	Concurrency  int
	BatchCount   int
	SDelayMS     int
	RTimeoutSecs int
	LimitSecs    int
	QPS          uint64
	QPSFlowSpec  string

	// Explicit-override detection, per original flame's arg_exists:
	// when -P tcp is selected and the user did not pass these flags,
	// TCP-specific defaults (s_delay=1000, batch_count=100,
	// concurrency=30) apply instead of the UDP defaults.
	SDelayExplicit      bool
	BatchCountExplicit  bool
	ConcurrencyExplicit bool

	Generator string
	GenArgs   []string
	FilePath  string
	QnameBase string
	Qtype     string
	Qclass    string
	DnssecDO  bool
	Loops     int
	Randomize bool

	OutputFile string
	Verbosity  int
	CommandLine []string

	// PromRegistry, if non-nil, is wired into the run's metrics Recorder
	// so -metrics-addr can expose live counters alongside the final
	// JSON snapshot.
	PromRegistry *prometheus.Registry
}

// Runner owns every TrafGen and shared resource for one invocation.
type Runner struct {
	opts         Options
	qgen         querygen.Generator
	trafgens     []*trafgen.TrafGen
	scheduler    *tokenbucket.FlowScheduler
	sink         *metrics.Recorder
	shutdownOnce int32
	stopCh       chan struct{}
}

// New validates opts, resolves the target, builds the query generator
// and shared rate limiter, and prepares (but does not start) the
// TrafGen fleet.
func New(opts Options) (*Runner, error) {
	if opts.Protocol == ProtoTCP {
		if !opts.SDelayExplicit {
			opts.SDelayMS = 1000
		}
		if !opts.BatchCountExplicit {
			opts.BatchCount = 100
		}
		if !opts.ConcurrencyExplicit {
			opts.Concurrency = 30
		}
	}

	qgen := querygen.New(opts.Generator, querygen.Config{
		QnameBase: opts.QnameBase,
		Qtype:     opts.Qtype,
		Qclass:    opts.Qclass,
		DnssecDO:  opts.DnssecDO,
		Loops:     opts.Loops,
	})
	if opts.FilePath != "" {
		type filePathSetter interface{ SetFilePath(string) }
		if fg, ok := qgen.(filePathSetter); ok {
			fg.SetFilePath(opts.FilePath)
		}
	}
	if err := qgen.SetArgs(opts.GenArgs); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	if err := qgen.Init(); err != nil {
		return nil, fmt.Errorf("runner: generator init: %w", err)
	}
	if opts.Randomize {
		qgen.Randomize()
	}

	bucket, scheduler, err := buildBucket(opts)
	if err != nil {
		return nil, err
	}

	sink := metrics.New(opts.CommandLine, metrics.ConfigEcho{
		Target:      opts.Target,
		Family:      string(opts.Family),
		Port:        opts.Port,
		Protocol:    string(opts.Protocol),
		Concurrency: opts.Concurrency,
		BatchCount:  opts.BatchCount,
		SDelayMS:    opts.SDelayMS,
		RTimeoutSec: opts.RTimeoutSecs,
		Loops:       opts.Loops,
		QPS:         opts.QPS,
		Generator:   qgen.Name(),
	})
	if opts.PromRegistry != nil {
		sink.AttachPrometheus(metrics.NewPromHooks(opts.PromRegistry))
	}

	r := &Runner{
		opts:      opts,
		qgen:      qgen,
		scheduler: scheduler,
		sink:      sink,
		stopCh:    make(chan struct{}),
	}

	cfg, err := r.trafGenConfig()
	if err != nil {
		return nil, err
	}

	pacer := ratelimiter.New(startupPacingRate(opts.Concurrency))
	for i := 0; i < opts.Concurrency; i++ {
		pacer.Take()
		tg := trafgen.New(cfg, qgen, bucket, sink)
		r.trafgens = append(r.trafgens, tg)
	}

	if opts.Verbosity > 0 {
		logging.Println(3, "runner", fmt.Sprintf(
			"flaming target %s on port %d with %d concurrent generators, each sending %d queries every %dms on protocol %s",
			opts.Target, opts.Port, opts.Concurrency, opts.BatchCount, opts.SDelayMS, opts.Protocol))
		logging.Println(3, "runner", fmt.Sprintf("query generator [%s] contains %d record(s)", qgen.Name(), qgen.Size()))
		if opts.Randomize {
			logging.Println(3, "runner", "query list randomized")
		}
	}

	return r, nil
}

// startupPacingRate returns a high-but-bounded rate so staggering
// TrafGen startup never meaningfully delays small fleets but avoids a
// connect/bind thundering herd for large ones.
func startupPacingRate(concurrency int) int {
	if concurrency <= 100 {
		return 1000
	}
	return 200
}

func buildBucket(opts Options) (*tokenbucket.TokenBucket, *tokenbucket.FlowScheduler, error) {
	if opts.QPS > 0 {
		return tokenbucket.New(opts.QPS, opts.QPS), nil, nil
	}
	if opts.QPSFlowSpec != "" {
		flows, err := parseFlowSpec(opts.QPSFlowSpec)
		if err != nil {
			return nil, nil, err
		}
		bucket := tokenbucket.NewUnlimited()
		scheduler := tokenbucket.NewFlowScheduler(flows, bucket)
		scheduler.Start()
		return bucket, scheduler, nil
	}
	return tokenbucket.NewUnlimited(), nil, nil
}

func (r *Runner) trafGenConfig() (trafgen.Config, error) {
	cfg := trafgen.Config{
		BatchCount: r.opts.BatchCount,
		SDelay:     time.Duration(r.opts.SDelayMS) * time.Millisecond,
		RTimeout:   time.Duration(r.opts.RTimeoutSecs) * time.Second,
	}
	switch r.opts.Protocol {
	case ProtoUDP:
		cfg.Protocol = trafgen.UDP
	case ProtoTCP:
		cfg.Protocol = trafgen.TCP
	default:
		return cfg, fmt.Errorf("runner: protocol must be 'udp' or 'tcp', got %q", r.opts.Protocol)
	}

	ip, err := resolveTarget(r.opts.Target, r.opts.Family)
	if err != nil {
		return cfg, err
	}
	switch r.opts.Protocol {
	case ProtoUDP:
		if r.opts.Family == FamilyInet6 {
			cfg.Family = "udp6"
		} else {
			cfg.Family = "udp4"
		}
		cfg.TargetUDP = &net.UDPAddr{IP: ip, Port: r.opts.Port}
	case ProtoTCP:
		if r.opts.Family == FamilyInet6 {
			cfg.Family = "tcp6"
		} else {
			cfg.Family = "tcp4"
		}
		cfg.TargetTCP = &net.TCPAddr{IP: ip, Port: r.opts.Port}
	}
	return cfg, nil
}

// resolveTarget resolves TARGET to an address of the requested family,
// failing fast if no matching address exists.
func resolveTarget(target string, family Family) (net.IP, error) {
	network := "ip4"
	if family == FamilyInet6 {
		network = "ip6"
	} else if family != FamilyInet {
		return nil, fmt.Errorf("runner: internet family must be 'inet' or 'inet6', got %q", family)
	}
	ips, err := net.DefaultResolver.LookupIP(context.Background(), network, target)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("runner: unable to resolve target address %q for family %s: %w", target, family, err)
	}
	return ips[0], nil
}

// Run starts every TrafGen, installs signal/runtime-limit/generator-
// exhaustion shutdown triggers, and blocks until shutdown completes.
func (r *Runner) Run() error {
	pacer := ratelimiter.New(startupPacingRate(len(r.trafgens)))
	for _, tg := range r.trafgens {
		pacer.Take()
		if err := tg.Start(); err != nil {
			return fmt.Errorf("runner: starting trafgen: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var limitTimer *time.Timer
	if r.opts.LimitSecs > 0 {
		limitTimer = time.AfterFunc(time.Duration(r.opts.LimitSecs)*time.Second, func() {
			r.shutdown()
		})
	}

	var pollTicker *time.Ticker
	if r.opts.Loops > 0 {
		pollTicker = time.NewTicker(500 * time.Millisecond)
		go func() {
			for range pollTicker.C {
				if r.qgen.Finished() {
					r.shutdown()
					return
				}
			}
		}()
	}

	select {
	case <-sigCh:
		r.shutdown()
	case <-r.stopCh:
	}

	if limitTimer != nil {
		limitTimer.Stop()
	}
	if pollTicker != nil {
		pollTicker.Stop()
	}
	signal.Stop(sigCh)

	for _, tg := range r.trafgens {
		<-tg.Done()
	}
	return nil
}

// shutdown is idempotent: stops every TrafGen and unblocks Run.
func (r *Runner) shutdown() {
	if !atomic.CompareAndSwapInt32(&r.shutdownOnce, 0, 1) {
		return
	}
	anyInFlight := false
	for _, tg := range r.trafgens {
		if tg.InFlightCnt() > 0 {
			anyInFlight = true
		}
	}
	if anyInFlight && r.opts.Verbosity > 0 {
		logging.Println(3, "runner", fmt.Sprintf("stopping, waiting up to %ds for in flight to finish...", r.opts.RTimeoutSecs))
	}
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
	for _, tg := range r.trafgens {
		tg.Stop()
	}
	close(r.stopCh)
}

// Metrics exposes the run's metrics sink for final JSON persistence.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.sink
}
