// Package transport implements flame's two wire transports: a plain UDP
// socket and an async TCP connection, both built on ordinary net.Conn —
// flame never needs to spoof its own source address, so there is no
// reason to reach for raw sockets.
package transport

import (
	"net"

	"github.com/shmup/flamethrower/internal/logging"
	"github.com/shmup/flamethrower/internal/metrics"
	"github.com/shmup/flamethrower/internal/tokenbucket"
)

// UdpUpstream is the set of collaborators UdpTransport needs from its
// owning TrafGen: a way to reserve a transaction ID before sending, the
// query generator, and the current in-flight count. The shared rate
// limiter is passed to NewUDP separately.
type UdpUpstream interface {
	ReserveID() (uint16, bool)
	NextUDP(id uint16) ([]byte, error)
	InFlightCnt() int
}

// UdpTransport binds one ephemeral UDP socket and drives it against a
// single target for the lifetime of its owning TrafGen.
//
// Response bytes are handed to the owner over inbox rather than via a
// direct callback: the in-flight table a response must be matched
// against is owned exclusively by the TrafGen's single event-loop
// goroutine (see internal/inflight), so the receive goroutine below
// only ever touches the socket and the channel, never shared state.
type UdpTransport struct {
	conn     *net.UDPConn
	target   *net.UDPAddr
	bucket   *tokenbucket.TokenBucket
	upstream UdpUpstream
	inbox    chan<- []byte
	metrics  metrics.Sink
	stopped  bool
}

// NewUDP binds a fresh ephemeral source port for family ("udp4" or
// "udp6") and prepares a transport targeting target.
func NewUDP(family string, target *net.UDPAddr, bucket *tokenbucket.TokenBucket, upstream UdpUpstream, inbox chan<- []byte, sink metrics.Sink) (*UdpTransport, error) {
	local := &net.UDPAddr{}
	if family == "udp6" {
		local.IP = net.IPv6zero
	}
	conn, err := net.ListenUDP(family, local)
	if err != nil {
		return nil, err
	}
	return &UdpTransport{
		conn:     conn,
		target:   target,
		bucket:   bucket,
		upstream: upstream,
		inbox:    inbox,
		metrics:  sink,
	}, nil
}

// StartReceiving launches the continuous-receive goroutine. Each
// datagram's bytes are forwarded on inbox; socket errors after Close
// are swallowed.
func (t *UdpTransport) StartReceiving() {
	go func() {
		buf := make([]byte, 65535)
		for {
			n, _, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				if t.stopped {
					return
				}
				t.metrics.NetError()
				logging.Println(2, "UdpTransport", "recv error:", err)
				continue
			}
			msg := make([]byte, n)
			copy(msg, buf[:n])
			t.inbox <- msg
		}
	}()
}

// SendBatch issues up to batchCount sends, each gated by the shared
// rate limiter and the in-flight ID pool, stopping early the moment
// either is exhausted.
func (t *UdpTransport) SendBatch(batchCount int) {
	for i := 0; i < batchCount; i++ {
		if !t.bucket.Consume(1) {
			return
		}
		id, ok := t.upstream.ReserveID()
		if !ok {
			logging.Println(3, "UdpTransport", "in-flight ceiling reached, stopping batch")
			t.metrics.InFlightCeiling()
			return
		}
		wire, err := t.upstream.NextUDP(id)
		if err != nil {
			logging.Println(1, "UdpTransport", "query generation failed:", err)
			return
		}
		n, err := t.conn.WriteToUDP(wire, t.target)
		if err != nil {
			t.metrics.NetError()
			logging.Println(2, "UdpTransport", "send error:", err)
			continue
		}
		t.metrics.Send(n, 1, t.upstream.InFlightCnt())
	}
}

// Close shuts down the socket. Safe to call once.
func (t *UdpTransport) Close() error {
	t.stopped = true
	return t.conn.Close()
}
