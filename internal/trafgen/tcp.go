package trafgen

import (
	"time"

	"github.com/shmup/flamethrower/internal/logging"
	"github.com/shmup/flamethrower/internal/transport"
)

const maxTCPBackoff = 30 * time.Second

// startTCPSession begins a fresh connection attempt (IDLE -> CONNECTING).
// Called both on TrafGen.Start and whenever a prior session finishes and
// the TrafGen is not stopping.
func (g *TrafGen) startTCPSession() {
	g.tcpState = tcpConnecting
	g.tcpTr = transport.NewTCP(g.cfg.Family, g.cfg.TargetTCP, g.sink)
	g.tcpTr.Dial()
}

func (g *TrafGen) handleTCPEvent(ev transport.TCPEvent) {
	switch ev.Kind {
	case transport.TCPConnected:
		g.tcpBackoff = 0
		g.enterSending()

	case transport.TCPConnectFailed:
		logging.Println(2, "TrafGen", "tcp connect failed:", ev.Err)
		g.tcpTr = nil
		g.tcpState = tcpIdle
		g.scheduleTCPRestart()

	case transport.TCPWriteDone:
		if ev.Err != nil {
			g.enterClosing()
			return
		}
		g.writeCompletedAt = ev.At
		g.tcpState = tcpDraining
		g.armDrainPoll()

	case transport.TCPMessage:
		g.processWire(ev.Data)

	case transport.TCPPeerEOF, transport.TCPFramingError, transport.TCPReadError:
		g.enterClosing()
	}
}

// enterSending reserves up to batch_count transaction IDs against the
// shared rate limiter and free-ID pool, then issues one write carrying
// all of them. If nothing could be reserved, the session closes without
// writing.
func (g *TrafGen) enterSending() {
	g.tcpState = tcpSending
	ids := make([]uint16, 0, g.cfg.BatchCount)
	for i := 0; i < g.cfg.BatchCount; i++ {
		if !g.bucket.Consume(1) {
			break
		}
		id, ok := g.table.Reserve(time.Now())
		g.syncInFlight()
		if !ok {
			g.sink.InFlightCeiling()
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		g.enterClosing()
		return
	}
	wire, err := g.qgen.NextTCP(ids)
	if err != nil {
		logging.Println(1, "TrafGen", "tcp query generation failed:", err)
		g.enterClosing()
		return
	}
	g.sink.Send(len(wire), len(ids), g.InFlightCnt())
	g.tcpTr.Write(wire)
}

// handleDrainPoll evaluates the two independent DRAINING->CLOSING
// conditions on the 50ms poll: responses settled (or timed out) AND the
// minimum inter-session spacing has elapsed.
func (g *TrafGen) handleDrainPoll() {
	if g.tcpState != tcpDraining {
		return
	}
	elapsed := time.Since(g.writeCompletedAt)
	settled := g.InFlightCnt() == 0 || elapsed >= g.cfg.RTimeout
	spaced := elapsed >= g.cfg.SDelay
	if settled && spaced {
		g.enterClosing()
		return
	}
	g.armDrainPoll()
}

// enterClosing force-expires every in-flight entry left over from this
// session, closes the connection, and — unless stopping — restarts a
// new session immediately. Backoff only applies on scheduleTCPRestart,
// i.e. when the dial itself fails; a peer that accepts and then drops
// the connection (reset, EOF, framing error) reconnects with no delay.
func (g *TrafGen) enterClosing() {
	g.tcpState = tcpClosing
	expired := g.table.ForceExpireAll()
	n := g.syncInFlight()
	for range expired {
		g.sink.Timeout(n)
	}
	if g.tcpTr != nil {
		g.tcpTr.Close()
	}
	g.tcpTr = nil
	g.tcpState = tcpIdle
	if !g.stopping.Load() {
		g.startTCPSession()
	}
}

func (g *TrafGen) scheduleTCPRestart() {
	if g.stopping.Load() {
		return
	}
	if g.tcpBackoff == 0 {
		g.tcpBackoff = 100 * time.Millisecond
	} else {
		g.tcpBackoff *= 2
		if g.tcpBackoff > maxTCPBackoff {
			g.tcpBackoff = maxTCPBackoff
		}
	}
	time.AfterFunc(g.tcpBackoff, func() {
		select {
		case g.tcpRestartCh <- struct{}{}:
		default:
		}
	})
}
