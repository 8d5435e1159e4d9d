package metrics

import (
	"strconv"
	"sync"
)

// rcodeTally counts responses by DNS response code, keyed by name
// (NOERROR, SERVFAIL, NXDOMAIN, ...) rather than numeric value so the
// JSON dump is readable without a lookup table.
type rcodeTally struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newRcodeTally() *rcodeTally {
	return &rcodeTally{counts: make(map[string]uint64)}
}

var rcodeNames = map[int]string{
	0: "NOERROR", 1: "FORMERR", 2: "SERVFAIL", 3: "NXDOMAIN",
	4: "NOTIMP", 5: "REFUSED", 6: "YXDOMAIN", 7: "YXRRSET",
	8: "NXRRSET", 9: "NOTAUTH", 10: "NOTZONE",
}

func rcodeName(rcode int) string {
	if name, ok := rcodeNames[rcode]; ok {
		return name
	}
	return "RCODE" + strconv.Itoa(rcode)
}

func (t *rcodeTally) incr(rcode int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[rcodeName(rcode)]++
}

func (t *rcodeTally) all() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]uint64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
