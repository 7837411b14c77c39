/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package clock provides the station's notion of time. Charging sessions are
// long, so the control plane runs against an accelerated clock that advances
// at a fixed multiple of the base clock, letting a multi-hour session settle
// within seconds of wall time.
package clock

import (
	"sync"
	"time"

	baseclock "k8s.io/utils/clock"
)

// Clock is the read-only time source handed to the scheduler and billing.
type Clock interface {
	Now() time.Time
}

// Accelerated is a monotonic clock anchored at construction time: reads
// return boot + (base.Now() - boot) * rate. A rate of 1 degenerates to the
// base clock.
type Accelerated struct {
	mu   sync.RWMutex
	base baseclock.PassiveClock
	boot time.Time
	rate float64
}

// NewAccelerated returns a clock running at rate times the speed of base,
// anchored at base.Now().
func NewAccelerated(base baseclock.PassiveClock, rate float64) *Accelerated {
	return &Accelerated{
		base: base,
		boot: base.Now(),
		rate: rate,
	}
}

// Now returns the current accelerated time.
func (c *Accelerated) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boot.Add(time.Duration(float64(c.base.Now().Sub(c.boot)) * c.rate))
}

// Reset re-anchors the clock at the base clock's current time, discarding
// the accumulated acceleration.
func (c *Accelerated) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boot = c.base.Now()
}

// Rate returns the configured acceleration factor.
func (c *Accelerated) Rate() float64 {
	return c.rate
}
