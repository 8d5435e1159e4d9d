package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecorderCountersAccumulate(t *testing.T) {
	r := New([]string{"flame", "target"}, ConfigEcho{Target: "target"})
	r.Send(100, 2, 5)
	r.Receive(time.Now().Add(-time.Millisecond), 0, 4)
	r.Timeout(3)
	r.BadReceive(3)
	r.NetError()
	r.TCPConnection()
	r.InFlightCeiling()

	snap := r.Snapshot()
	if snap.Counters.Sends != 2 {
		t.Fatalf("Sends = %d, want 2", snap.Counters.Sends)
	}
	if snap.Counters.BytesSent != 100 {
		t.Fatalf("BytesSent = %d, want 100", snap.Counters.BytesSent)
	}
	if snap.Counters.Receives != 1 {
		t.Fatalf("Receives = %d, want 1", snap.Counters.Receives)
	}
	if snap.Counters.Timeouts != 1 || snap.Counters.BadReceives != 1 || snap.Counters.NetErrors != 1 ||
		snap.Counters.TCPConnections != 1 || snap.Counters.InFlightCeilings != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if snap.Latency.Count != 1 {
		t.Fatalf("Latency.Count = %d, want 1", snap.Latency.Count)
	}
	if snap.Rcodes["NOERROR"] != 1 {
		t.Fatalf("Rcodes[NOERROR] = %d, want 1, got %v", snap.Rcodes["NOERROR"], snap.Rcodes)
	}
}

func TestRecorderWriteJSONPersistsSnapshot(t *testing.T) {
	r := New([]string{"flame"}, ConfigEcho{Target: "x"})
	r.Send(10, 1, 0)
	path := filepath.Join(t.TempDir(), "out.json")
	if err := r.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if snap.Counters.Sends != 1 {
		t.Fatalf("persisted Sends = %d, want 1", snap.Counters.Sends)
	}
	if snap.RunID == "" {
		t.Fatal("persisted snapshot has an empty RunID")
	}
}

func TestHistogramPercentilesAreMonotonic(t *testing.T) {
	h := newHistogram()
	for i := uint64(1); i <= 1000; i++ {
		h.observe(i)
	}
	p50 := h.percentile(0.50)
	p90 := h.percentile(0.90)
	p99 := h.percentile(0.99)
	if !(p50 <= p90 && p90 <= p99) {
		t.Fatalf("percentiles not monotonic: p50=%d p90=%d p99=%d", p50, p90, p99)
	}
}

func TestHistogramEmptyPercentileIsZero(t *testing.T) {
	h := newHistogram()
	if p := h.percentile(0.5); p != 0 {
		t.Fatalf("percentile on empty histogram = %d, want 0", p)
	}
}

func TestRcodeNameKnownAndUnknown(t *testing.T) {
	if rcodeName(0) != "NOERROR" {
		t.Fatalf("rcodeName(0) = %q, want NOERROR", rcodeName(0))
	}
	if rcodeName(999) != "RCODE999" {
		t.Fatalf("rcodeName(999) = %q, want RCODE999 fallback", rcodeName(999))
	}
}

func TestRcodeTallyCountsByName(t *testing.T) {
	rt := newRcodeTally()
	rt.incr(0)
	rt.incr(0)
	rt.incr(2)
	all := rt.all()
	if all["NOERROR"] != 2 || all["SERVFAIL"] != 1 {
		t.Fatalf("all() = %v", all)
	}
}
