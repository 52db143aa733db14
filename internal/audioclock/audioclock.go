// Package audioclock maps Ogg granule positions to wall-clock deadlines,
// pacing page emission so a relayed stream behaves like a live encoder
// rather than dumping bytes as fast as the network will take them.
package audioclock

import "time"

// Clock converts a sample-domain granule position into the wall-clock
// instant that sample should leave the wire, relative to a fixed
// stream start time.
type Clock struct {
	sampleRate uint32
	startTime  time.Time
}

// New creates a Clock ticking at sampleRate Hz, with its origin (granule
// position 0) anchored to the given start time.
func New(sampleRate uint32, startTime time.Time) *Clock {
	return &Clock{sampleRate: sampleRate, startTime: startTime}
}

// Deadline returns the wall-clock instant at which granule position
// should be considered "due".
func (c *Clock) Deadline(granule uint64) time.Time {
	millis := granule * 1000 / uint64(c.sampleRate)
	return c.startTime.Add(time.Duration(millis) * time.Millisecond)
}

// pacedPage is the minimal view Clock needs of a page to compute pacing;
// satisfied by *oggfmt.Page without this package depending on oggfmt.
type pacedPage interface {
	Position() uint64
}

// WaitDuration returns how long the splicer should sleep after emitting
// page before its deadline has elapsed, relative to now. Never negative:
// a page already past its deadline returns zero.
func (c *Clock) WaitDuration(page pacedPage, now time.Time) time.Duration {
	d := c.Deadline(page.Position()).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// SampleRate returns the clock's configured sample rate in Hz.
func (c *Clock) SampleRate() uint32 { return c.sampleRate }
