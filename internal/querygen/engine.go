package querygen

import (
	"math/rand"
	"sync"

	"github.com/gopacket/gopacket/layers"

	"github.com/shmup/flamethrower/internal/dnswire"
)

// record is one entry of a generator's internal list. Either qname/qtype
// describe a question to build through dnswire, or raw holds a
// pre-rendered wire buffer (randompkt) that only needs its transaction ID
// stamped in place.
type record struct {
	qname string
	qtype layers.DNSType
	raw   []byte
}

// listEngine implements the cursor/loop/finished machinery shared by
// every generator variant: iterate a finite record list, wrapping and
// counting completed passes; finished() reports true once loops() passes
// have run, while next() itself keeps wrapping. A
// single instance is shared by every TrafGen in the fleet, each calling
// next()/finished() from its own goroutine, so cursor/loopsDone are
// guarded by mu.
type listEngine struct {
	mu        sync.Mutex
	records   []record
	qclass    layers.DNSClass
	do        bool
	loops     int
	cursor    int
	loopsDone int
}

func (e *listEngine) size() int {
	return len(e.records)
}

func (e *listEngine) finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loops > 0 && e.loopsDone >= e.loops
}

// randomizeList performs an in-place Fisher-Yates shuffle of the record
// list. Variants whose records are already synthesized independently at
// random treat this as a no-op instead.
func (e *listEngine) randomizeList() {
	e.mu.Lock()
	defer e.mu.Unlock()
	rand.Shuffle(len(e.records), func(i, j int) {
		e.records[i], e.records[j] = e.records[j], e.records[i]
	})
}

// next advances the cursor and reports the record due to be sent,
// incrementing loopsDone exactly when a full pass completes.
func (e *listEngine) next() record {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.records[e.cursor]
	e.cursor++
	if e.cursor >= len(e.records) {
		e.cursor = 0
		e.loopsDone++
	}
	return rec
}

func (e *listEngine) wireFor(rec record, id uint16) ([]byte, error) {
	if rec.raw != nil {
		wire := make([]byte, len(rec.raw))
		copy(wire, rec.raw)
		dnswire.StampID(wire, id)
		return wire, nil
	}
	return dnswire.BuildQuery(rec.qname, rec.qtype, e.qclass, e.do, id)
}

func (e *listEngine) nextUDP(id uint16) ([]byte, error) {
	rec := e.next()
	return e.wireFor(rec, id)
}

func (e *listEngine) nextTCP(ids []uint16) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		rec := e.next()
		wire, err := e.wireFor(rec, id)
		if err != nil {
			return nil, err
		}
		prefix := []byte{byte(len(wire) >> 8), byte(len(wire))}
		out = append(out, prefix...)
		out = append(out, wire...)
	}
	return out, nil
}
