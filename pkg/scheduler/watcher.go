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

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	baseclock "k8s.io/utils/clock"
)

// Watcher is the single background poller that detects completed sessions.
// It is not a per-request timer: completion latency is bounded by the poll
// interval (one real second by default).
type Watcher struct {
	sched    *Scheduler
	interval time.Duration
	clk      baseclock.WithTicker
	log      logr.Logger
}

// NewWatcher returns a watcher sweeping the scheduler every interval of the
// given (real, unaccelerated) clock.
func NewWatcher(log logr.Logger, sched *Scheduler, clk baseclock.WithTicker, interval time.Duration) *Watcher {
	return &Watcher{
		sched:    sched,
		interval: interval,
		clk:      clk,
		log:      log,
	}
}

// Start runs the poll loop until the context is cancelled. A settlement
// failure is fatal: it propagates so the process can be restarted by its
// supervisor rather than charge against a store it cannot write to.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("completion watcher started", "interval", w.interval)
	ticker := w.clk.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("completion watcher stopped")
			return nil
		case <-ticker.C():
			if err := w.sched.SettleCompleted(ctx); err != nil {
				return fmt.Errorf("completion sweep: %w", err)
			}
		}
	}
}
