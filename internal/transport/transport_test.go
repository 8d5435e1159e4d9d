package transport

import (
	"net"
	"testing"
	"time"

	"github.com/shmup/flamethrower/internal/metrics"
	"github.com/shmup/flamethrower/internal/tokenbucket"
)

type fakeSink struct{}

func (fakeSink) Send(int, int, int)          {}
func (fakeSink) Receive(time.Time, int, int) {}
func (fakeSink) Timeout(int)                 {}
func (fakeSink) BadReceive(int)              {}
func (fakeSink) NetError()                   {}
func (fakeSink) TCPConnection()              {}
func (fakeSink) InFlightCeiling()            {}

var _ metrics.Sink = fakeSink{}

type fakeUpstream struct {
	nextID uint16
}

func (u *fakeUpstream) ReserveID() (uint16, bool) {
	u.nextID++
	return u.nextID, true
}

func (u *fakeUpstream) NextUDP(id uint16) ([]byte, error) {
	return []byte{byte(id >> 8), byte(id), 0xAA}, nil
}

func (u *fakeUpstream) InFlightCnt() int { return 0 }

func TestUDPSendBatchAndReceiveRoundTrip(t *testing.T) {
	echoConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP (echo server): %v", err)
	}
	defer echoConn.Close()

	go func() {
		buf := make([]byte, 1500)
		for {
			n, addr, err := echoConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			echoConn.WriteToUDP(buf[:n], addr)
		}
	}()

	inbox := make(chan []byte, 8)
	upstream := &fakeUpstream{}
	tr, err := NewUDP("udp4", echoConn.LocalAddr().(*net.UDPAddr), tokenbucket.NewUnlimited(), upstream, inbox, fakeSink{})
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer tr.Close()
	tr.StartReceiving()
	tr.SendBatch(3)

	for i := 0; i < 3; i++ {
		select {
		case msg := <-inbox:
			if len(msg) != 3 {
				t.Fatalf("echoed message length = %d, want 3", len(msg))
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for echoed UDP response")
		}
	}
}

func TestTCPDialWriteReadEvents(t *testing.T) {
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1500)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		conn.Write(buf[:n])
	}()

	tr := NewTCP("tcp4", ln.Addr().(*net.TCPAddr), fakeSink{})
	tr.Dial()

	ev := <-tr.Events()
	if ev.Kind != TCPConnected {
		t.Fatalf("first event kind = %v, want TCPConnected", ev.Kind)
	}

	payload := make([]byte, 2+17)
	payload[0] = 0
	payload[1] = 17
	tr.Write(payload)

	ev = <-tr.Events()
	if ev.Kind != TCPWriteDone || ev.Err != nil {
		t.Fatalf("write event = %+v, want successful TCPWriteDone", ev)
	}

	ev = <-tr.Events()
	if ev.Kind != TCPMessage || len(ev.Data) != 17 {
		t.Fatalf("message event = %+v, want a 17-byte TCPMessage", ev)
	}

	tr.Close()
	<-serverDone
}

func TestTCPDialFailureReportsConnectFailed(t *testing.T) {
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing listening anymore

	tr := NewTCP("tcp4", addr, fakeSink{})
	tr.Dial()

	select {
	case ev := <-tr.Events():
		if ev.Kind != TCPConnectFailed {
			t.Fatalf("event kind = %v, want TCPConnectFailed", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TCPConnectFailed")
	}
}
