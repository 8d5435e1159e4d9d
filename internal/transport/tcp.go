package transport

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/shmup/flamethrower/internal/metrics"
	"github.com/shmup/flamethrower/internal/tcpframer"
)

// TCPEventKind tags the events a TcpTransport reports on its Events
// channel. TcpTransport itself holds no session state machine — that
// lives in internal/trafgen, the sole owner of the in-flight table —
// it only performs the actual async socket I/O and framing.
type TCPEventKind int

const (
	TCPConnected TCPEventKind = iota
	TCPConnectFailed
	TCPWriteDone
	TCPMessage
	TCPPeerEOF
	TCPFramingError
	TCPReadError
)

// TCPEvent is one reported occurrence on the connection.
type TCPEvent struct {
	Kind TCPEventKind
	Err  error
	Data []byte
	At   time.Time
}

// TcpTransport owns one TCP connection attempt's raw I/O: dialing,
// writing, and draining+framing the response stream. A fresh
// TcpTransport is created for every session; it is not reused across
// reconnects.
type TcpTransport struct {
	family  string
	target  *net.TCPAddr
	conn    *net.TCPConn
	framer  tcpframer.Framer
	events  chan TCPEvent
	metrics metrics.Sink
}

// NewTCP prepares (without dialing) a transport targeting target over
// family ("tcp4" or "tcp6").
func NewTCP(family string, target *net.TCPAddr, sink metrics.Sink) *TcpTransport {
	return &TcpTransport{
		family:  family,
		target:  target,
		events:  make(chan TCPEvent, 32),
		metrics: sink,
	}
}

// Events is the channel the owner selects on alongside its own timers.
func (t *TcpTransport) Events() <-chan TCPEvent {
	return t.events
}

// Dial opens the connection in the background and begins draining
// responses once connected; both report back via Events.
func (t *TcpTransport) Dial() {
	go func() {
		conn, err := net.DialTCP(t.family, nil, t.target)
		if err != nil {
			t.events <- TCPEvent{Kind: TCPConnectFailed, Err: err, At: time.Now()}
			return
		}
		t.conn = conn
		t.metrics.TCPConnection()
		t.events <- TCPEvent{Kind: TCPConnected, At: time.Now()}
		t.readLoop()
	}()
}

func (t *TcpTransport) readLoop() {
	buf := make([]byte, 65535)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			msgs, ferr := t.framer.Received(buf[:n])
			for _, m := range msgs {
				t.events <- TCPEvent{Kind: TCPMessage, Data: m, At: time.Now()}
			}
			if ferr != nil {
				t.events <- TCPEvent{Kind: TCPFramingError, Err: ferr, At: time.Now()}
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.events <- TCPEvent{Kind: TCPPeerEOF, At: time.Now()}
			} else {
				t.metrics.NetError()
				t.events <- TCPEvent{Kind: TCPReadError, Err: err, At: time.Now()}
			}
			return
		}
	}
}

// Write issues one write asynchronously; completion (success or error)
// is reported on Events. The caller must record each query's send time
// at issuance, before calling Write, not on TCPWriteDone — an early
// response must never be compared against an unset send time.
func (t *TcpTransport) Write(data []byte) {
	go func() {
		_, err := t.conn.Write(data)
		if err != nil {
			t.metrics.NetError()
		}
		t.events <- TCPEvent{Kind: TCPWriteDone, Err: err, At: time.Now()}
	}()
}

// Close tears down the underlying connection. Safe to call even if
// Dial never succeeded.
func (t *TcpTransport) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}
