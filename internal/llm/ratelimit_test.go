package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives a Pacer deterministically. Sleeping advances the
// clock by the requested duration.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func pacerWithClock(requestsPerMinute int, clock *fakeClock) *Pacer {
	p := NewPacer(requestsPerMinute)
	p.now = clock.now
	p.sleep = clock.sleep
	return p
}

func TestPacer_FirstCallDoesNotWait(t *testing.T) {
	clock := newFakeClock()
	p := pacerWithClock(15, clock)

	p.Wait()
	assert.Empty(t, clock.sleeps)
}

func TestPacer_EnforcesMinimumSpacing(t *testing.T) {
	clock := newFakeClock()
	p := pacerWithClock(15, clock)

	p.Wait()
	p.Wait()

	// 15 requests per minute means at least 4 seconds apart.
	assert.Equal(t, []time.Duration{4 * time.Second}, clock.sleeps)
}

func TestPacer_PartialElapsedTimeIsCredited(t *testing.T) {
	clock := newFakeClock()
	p := pacerWithClock(15, clock)

	p.Wait()
	clock.advance(1500 * time.Millisecond)
	p.Wait()

	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, clock.sleeps)
}

func TestPacer_NoWaitAfterLongGap(t *testing.T) {
	clock := newFakeClock()
	p := pacerWithClock(15, clock)

	p.Wait()
	clock.advance(10 * time.Second)
	p.Wait()

	assert.Empty(t, clock.sleeps)
}

func TestPacer_ConsecutiveDispatchSpacing(t *testing.T) {
	clock := newFakeClock()
	p := pacerWithClock(15, clock)

	var stamps []time.Time
	for i := 0; i < 4; i++ {
		p.Wait()
		stamps = append(stamps, clock.now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 4*time.Second,
			"dispatches %d and %d too close together", i-1, i)
	}
}

func TestNewPacer_NonPositiveRate(t *testing.T) {
	p := NewPacer(0)
	assert.Equal(t, time.Minute, p.interval, "a non-positive rate degrades to one request per minute")
}
