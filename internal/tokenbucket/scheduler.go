package tokenbucket

import (
	"time"

	"github.com/shmup/flamethrower/internal/logging"
)

// Flow is one entry of --qps-flow: a target rate sustained for a
// duration before the next entry (or forever, for the last entry).
type Flow struct {
	QPS        uint64
	DurationMS uint64
}

// FlowScheduler replays a finite sequence of flows by rewriting a shared
// TokenBucket in place on a one-shot timer, the same way
// original_source/flame's flow_change recurses through uvw::TimerHandle.
type FlowScheduler struct {
	queue  []Flow
	bucket *TokenBucket
	timer  *time.Timer
}

func NewFlowScheduler(flows []Flow, bucket *TokenBucket) *FlowScheduler {
	queue := make([]Flow, len(flows))
	copy(queue, flows)
	return &FlowScheduler{queue: queue, bucket: bucket}
}

// Start installs the first flow and, if more remain, arms the timer that
// will advance to the next one.
func (fs *FlowScheduler) Start() {
	if len(fs.queue) == 0 {
		return
	}
	fs.installNext()
}

func (fs *FlowScheduler) installNext() {
	flow := fs.queue[0]
	fs.queue = fs.queue[1:]
	fs.bucket.Set(flow.QPS, flow.QPS)
	if len(fs.queue) > 0 {
		logging.Println(4, "FlowScheduler", "qps now", flow.QPS, "for", flow.DurationMS, "ms, flows left:", len(fs.queue))
		fs.timer = time.AfterFunc(time.Duration(flow.DurationMS)*time.Millisecond, fs.installNext)
	} else {
		logging.Println(4, "FlowScheduler", "qps now", flow.QPS, "until completion")
	}
}

// Stop cancels any pending transition, leaving the bucket at whatever
// rate was last installed.
func (fs *FlowScheduler) Stop() {
	if fs.timer != nil {
		fs.timer.Stop()
	}
}
