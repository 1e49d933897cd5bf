package llm

import "time"

// Pacer enforces a minimum spacing between model calls. A single Pacer
// is shared by every invocation in a run, so the process as a whole
// never exceeds the configured request rate.
//
// The pipeline is single threaded; Pacer is not safe for concurrent
// use. A concurrent caller would need to put Wait behind a lock.
type Pacer struct {
	interval time.Duration
	last     time.Time

	// now and sleep are injectable for deterministic tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewPacer creates a Pacer allowing requestsPerMinute calls per minute.
func NewPacer(requestsPerMinute int) *Pacer {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &Pacer{
		interval: time.Minute / time.Duration(requestsPerMinute),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until the minimum spacing since the previous call has
// elapsed, then records the new call instant. The instant is stamped
// after the wait, immediately before the caller dispatches.
func (p *Pacer) Wait() {
	if !p.last.IsZero() {
		if elapsed := p.now().Sub(p.last); elapsed < p.interval {
			p.sleep(p.interval - elapsed)
		}
	}
	p.last = p.now()
}
