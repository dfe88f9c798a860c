package relay

import (
	"math/rand/v2"
	"time"
)

// pacer decides how long the relay sleeps between polls. Errors double the wait up to ceiling;
// any clean poll resets it to base.
type pacer struct {
	base    time.Duration
	ceiling time.Duration
	jitter  time.Duration
	current time.Duration
}

func newPacer(base, ceiling, jitter time.Duration) *pacer {
	if ceiling < base {
		ceiling = base
	}
	return &pacer{base: base, ceiling: ceiling, jitter: jitter, current: base}
}

func (p *pacer) idle() time.Duration {
	p.current = p.base
	return p.spread(p.base)
}

func (p *pacer) failed() time.Duration {
	p.current = min(p.current*2, p.ceiling)
	return p.spread(p.current)
}

func (p *pacer) spread(d time.Duration) time.Duration {
	if p.jitter <= 0 {
		return d
	}
	return d + rand.N(p.jitter)
}
