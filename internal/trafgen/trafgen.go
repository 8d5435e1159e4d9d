// Package trafgen composes a TokenBucket, a QueryGenerator, an
// InFlightTable and a wire transport into one self-driving traffic
// generator. Each TrafGen owns exactly one goroutine running a select
// loop over its timers and its transport's event channels, scoped down
// to one generator rather than one loop shared by the whole process.
// Every mutation of the in-flight table happens inside that one
// goroutine, so it needs no locking.
package trafgen

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/shmup/flamethrower/internal/dnswire"
	"github.com/shmup/flamethrower/internal/inflight"
	"github.com/shmup/flamethrower/internal/logging"
	"github.com/shmup/flamethrower/internal/metrics"
	"github.com/shmup/flamethrower/internal/querygen"
	"github.com/shmup/flamethrower/internal/tokenbucket"
	"github.com/shmup/flamethrower/internal/transport"
)

// Protocol selects which wire transport a TrafGen drives.
type Protocol int

const (
	UDP Protocol = iota
	TCP
)

// Config is the fixed, per-TrafGen configuration; TargetUDP/TargetTCP
// hold whichever address matches Protocol.
type Config struct {
	Protocol   Protocol
	Family     string // "udp4"/"udp6" for UDP, "tcp4"/"tcp6" for TCP
	TargetUDP  *net.UDPAddr
	TargetTCP  *net.TCPAddr
	BatchCount int
	SDelay     time.Duration
	RTimeout   time.Duration
}

type tcpFSMState int

const (
	tcpIdle tcpFSMState = iota
	tcpConnecting
	tcpSending
	tcpDraining
	tcpClosing
)

// TrafGen is one independent traffic-generating worker.
type TrafGen struct {
	cfg    Config
	qgen   querygen.Generator
	bucket *tokenbucket.TokenBucket
	table  *inflight.Table
	sink   metrics.Sink

	inbox chan []byte
	done  chan struct{}

	// stopping is read from the run() goroutine and written from
	// whichever goroutine calls Stop (the Runner's), hence atomic.
	stopping atomic.Bool

	// inFlightApprox mirrors table.Size(), updated from the run()
	// goroutine after every mutation, so the Runner can read it (for
	// shutdown logging) without touching the table itself, which is
	// not safe for concurrent access from outside that goroutine.
	inFlightApprox atomic.Int32

	// UDP
	udp *transport.UdpTransport

	// TCP session state machine
	tcpState         tcpFSMState
	tcpTr            *transport.TcpTransport
	writeCompletedAt time.Time
	drainPollCh      chan struct{}
	tcpBackoff       time.Duration

	senderTickCh   chan struct{}
	gcTickCh       chan struct{}
	shutdownFireCh chan struct{}
	tcpRestartCh   chan struct{}
	stopRequestCh  chan struct{}
}

// New builds a TrafGen ready for Start. qgen, bucket and sink are
// shared with sibling TrafGens: the Runner passes the same instance of
// each to every TrafGen in the fleet, and all three types are safe for
// concurrent use.
func New(cfg Config, qgen querygen.Generator, bucket *tokenbucket.TokenBucket, sink metrics.Sink) *TrafGen {
	return &TrafGen{
		cfg:            cfg,
		qgen:           qgen,
		bucket:         bucket,
		table:          inflight.New(),
		sink:           sink,
		inbox:          make(chan []byte, 1024),
		done:           make(chan struct{}),
		drainPollCh:    make(chan struct{}, 1),
		senderTickCh:   make(chan struct{}, 1),
		gcTickCh:       make(chan struct{}, 1),
		shutdownFireCh: make(chan struct{}, 1),
		tcpRestartCh:   make(chan struct{}, 1),
		stopRequestCh:  make(chan struct{}, 1),
	}
}

// InFlightCnt reports the number of outstanding queries. It is safe to
// call from any goroutine (the Runner uses it for shutdown logging);
// internally it is an atomic mirror of the table size, refreshed after
// every mutation inside run().
func (g *TrafGen) InFlightCnt() int {
	return int(g.inFlightApprox.Load())
}

// syncInFlight refreshes the atomic mirror. Must only be called from
// the run() goroutine, immediately after a table mutation.
func (g *TrafGen) syncInFlight() int {
	n := g.table.Size()
	g.inFlightApprox.Store(int32(n))
	return n
}

// ReserveID and NextUDP satisfy transport.UdpUpstream.
func (g *TrafGen) ReserveID() (uint16, bool) {
	id, ok := g.table.Reserve(time.Now())
	g.syncInFlight()
	return id, ok
}

func (g *TrafGen) NextUDP(id uint16) ([]byte, error) {
	return g.qgen.NextUDP(id)
}

// Start launches the TrafGen's goroutine and returns immediately.
func (g *TrafGen) Start() error {
	if g.cfg.Protocol == UDP {
		udp, err := transport.NewUDP(g.cfg.Family, g.cfg.TargetUDP, g.bucket, g, g.inbox, g.sink)
		if err != nil {
			return err
		}
		g.udp = udp
		g.udp.StartReceiving()
		g.armSenderTick(1 * time.Millisecond)
	}
	g.armGCTick(g.cfg.RTimeout)
	go g.run()
	return nil
}

func (g *TrafGen) armSenderTick(after time.Duration) {
	time.AfterFunc(after, func() {
		select {
		case g.senderTickCh <- struct{}{}:
		default:
		}
	})
}

func (g *TrafGen) armGCTick(after time.Duration) {
	time.AfterFunc(after, func() {
		select {
		case g.gcTickCh <- struct{}{}:
		default:
		}
	})
}

func (g *TrafGen) armDrainPoll() {
	time.AfterFunc(50*time.Millisecond, func() {
		select {
		case g.drainPollCh <- struct{}{}:
		default:
		}
	})
}

// run is the TrafGen's single event-loop goroutine.
func (g *TrafGen) run() {
	defer close(g.done)
	if g.cfg.Protocol == TCP {
		g.startTCPSession()
	}
	for {
		var tcpEvents <-chan transport.TCPEvent
		if g.tcpTr != nil {
			tcpEvents = g.tcpTr.Events()
		}
		select {
		case data := <-g.inbox:
			g.processWire(data)

		case <-g.senderTickCh:
			if !g.stopping.Load() && !g.qgen.Finished() {
				g.udp.SendBatch(g.cfg.BatchCount)
			}
			if !g.stopping.Load() {
				g.armSenderTick(g.cfg.SDelay)
			}

		case <-g.gcTickCh:
			expired := g.table.ExpireOlderThan(time.Now(), g.cfg.RTimeout)
			n := g.syncInFlight()
			for range expired {
				g.sink.Timeout(n)
			}
			g.armGCTick(1 * time.Second)

		case ev := <-tcpEvents:
			g.handleTCPEvent(ev)

		case <-g.drainPollCh:
			g.handleDrainPoll()

		case <-g.tcpRestartCh:
			if !g.stopping.Load() {
				g.startTCPSession()
			}

		case <-g.stopRequestCh:
			delay := 1 * time.Millisecond
			if g.InFlightCnt() > 0 {
				delay = g.cfg.RTimeout
			}
			time.AfterFunc(delay, func() {
				select {
				case g.shutdownFireCh <- struct{}{}:
				default:
				}
			})

		case <-g.shutdownFireCh:
			g.teardown()
			return
		}
	}
}

// processWire decodes a response and matches it against the in-flight
// table; malformed or untracked responses count as bad receives.
func (g *TrafGen) processWire(data []byte) {
	dns, err := dnswire.Decode(data)
	if err != nil {
		g.sink.BadReceive(g.syncInFlight())
		return
	}
	entry, ok := g.table.Complete(dns.ID)
	if !ok {
		logging.Println(4, "TrafGen", "untracked id", dns.ID)
		g.sink.BadReceive(g.syncInFlight())
		return
	}
	g.sink.Receive(entry.SendTime, int(dns.ResponseCode), g.syncInFlight())
}

// Stop requests shutdown. It is idempotent: repeated calls after the
// first are no-ops. Shutdown drains up to r_timeout for in-flight
// queries, then force-tears-down.
func (g *TrafGen) Stop() {
	if !g.stopping.CompareAndSwap(false, true) {
		return
	}
	select {
	case g.stopRequestCh <- struct{}{}:
	default:
	}
}

// Done reports when the TrafGen's goroutine has fully exited.
func (g *TrafGen) Done() <-chan struct{} {
	return g.done
}

func (g *TrafGen) teardown() {
	if g.udp != nil {
		g.udp.Close()
	}
	if g.tcpTr != nil {
		g.tcpTr.Close()
	}
	expired := g.table.ForceExpireAll()
	n := g.syncInFlight()
	for range expired {
		g.sink.Timeout(n)
	}
}
