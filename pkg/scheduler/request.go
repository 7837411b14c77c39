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
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
)

// phase is the single place a request's stage lives. Exactly one phase
// holds at a time; the scheduler lock guards every transition.
type phase int

const (
	// phaseWaiting: admitted, sitting in the waiting area of its kind.
	phaseWaiting phase = iota
	// phaseQueued: assigned to a pile queue, not at the head.
	phaseQueued
	// phaseExecuting: head of its pile queue, charge accruing since beginTime.
	phaseExecuting
	// phaseFailRequeue: displaced by a pile fault or recovery, parked in the
	// recovery queue awaiting re-dispatch.
	phaseFailRequeue
	// phaseTombstone: ended; the waiting area may still hold the husk until
	// lazy cleanup reaches it.
	phaseTombstone
)

// request is one live charging request. pileID is meaningful only in
// phaseQueued and phaseExecuting, beginTime only once promoted.
type request struct {
	id         uint16
	username   string
	kind       api.PileKind
	amount     decimal.Decimal
	battery    decimal.Decimal
	createTime time.Time
	beginTime  time.Time
	pileID     uint32
	phase      phase
	// requeue marks a request re-admitted because the user switched kinds.
	requeue bool
}

// label is the user-visible request tag, e.g. "F42" for a fast request.
func (r *request) label() string {
	prefix := "T"
	if r.kind == api.PileKindFast {
		prefix = "F"
	}
	return fmt.Sprintf("%s%d", prefix, r.id)
}
