package capture

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/candorlabs/liveinterview/runtime/logger"
)

// DropLog logs discarded frames at Debug without flooding: at most one line
// per interval, carrying the number suppressed since the last line.
type DropLog struct {
	kind       string
	limiter    *rate.Limiter
	suppressed atomic.Int64
	total      atomic.Int64
}

// NewDropLog creates a throttled drop logger for frames of the given kind.
func NewDropLog(kind string, every time.Duration) *DropLog {
	return &DropLog{
		kind:    kind,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Drop records one discarded frame and reports whether a line was logged.
func (d *DropLog) Drop(reason string, args ...any) bool {
	d.total.Add(1)
	if !d.limiter.Allow() {
		d.suppressed.Add(1)
		return false
	}
	fields := append([]any{"kind", d.kind, "reason", reason, "suppressed", d.suppressed.Swap(0)}, args...)
	logger.Debug("Frame dropped", fields...)
	return true
}

// Total is the number of frames dropped since creation.
func (d *DropLog) Total() int64 {
	return d.total.Load()
}
