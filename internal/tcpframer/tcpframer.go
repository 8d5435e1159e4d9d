// Package tcpframer deframes a DNS-over-TCP byte stream: each message is
// prefixed with a big-endian 16-bit length, per RFC 1035 §4.2.2.
package tcpframer

import (
	"encoding/binary"
	"errors"
)

// MinMessageSize and MaxMessageSize bound what flame considers a
// plausible DNS message; anything outside this range on the wire is
// treated as a framing error.
const (
	MinMessageSize = 17
	MaxMessageSize = 512
)

// ErrFraming is returned when a length prefix falls outside
// [MinMessageSize, MaxMessageSize]. The caller must close the connection
// and force-expire its in-flight entries.
var ErrFraming = errors.New("tcpframer: message length out of bounds")

// Framer holds at most one partial message plus any unread tail.
type Framer struct {
	buf []byte
}

// Received appends newly read bytes and drains every complete message
// currently available, in order. If a framing error is encountered the
// messages yielded so far are returned alongside ErrFraming; the caller
// must not call Received again on this Framer afterward.
func (f *Framer) Received(data []byte) ([][]byte, error) {
	f.buf = append(f.buf, data...)
	var messages [][]byte
	for {
		msg, err := f.tryYieldMessage()
		if err != nil {
			return messages, err
		}
		if msg == nil {
			return messages, nil
		}
		messages = append(messages, msg)
	}
}

// tryYieldMessage examines the front of the buffer: nil, nil means no
// complete message is available yet.
func (f *Framer) tryYieldMessage() ([]byte, error) {
	if len(f.buf) < 2 {
		return nil, nil
	}
	size := int(binary.BigEndian.Uint16(f.buf[:2]))
	if size < MinMessageSize || size > MaxMessageSize {
		return nil, ErrFraming
	}
	if len(f.buf) < 2+size {
		return nil, nil
	}
	msg := make([]byte, size)
	copy(msg, f.buf[2:2+size])
	f.buf = f.buf[2+size:]
	return msg, nil
}
