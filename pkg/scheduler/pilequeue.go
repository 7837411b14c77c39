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
	"time"

	"github.com/chargectl/chargectl/pkg/api"
)

// pileQueue is one pile's short FIFO of assigned requests. The head is the
// request being served; whenever the queue is non-empty its head is
// executing. An order-preserving slice is deliberate: status queries need
// stable positions, so a hash-ordered container would not do. All access
// happens under the scheduler lock.
type pileQueue struct {
	pileID   uint32
	kind     api.PileKind
	capacity int
	broken   bool
	requests []*request
}

func newPileQueue(pile *api.Pile, capacity int) *pileQueue {
	return &pileQueue{
		pileID:   pile.ID,
		kind:     pile.Kind,
		capacity: capacity,
		broken:   pile.Status.Broken(),
	}
}

// executing returns the head while it is being served, nil otherwise.
func (q *pileQueue) executing() *request {
	if len(q.requests) > 0 && q.requests[0].phase == phaseExecuting {
		return q.requests[0]
	}
	return nil
}

func (q *pileQueue) used() int {
	return len(q.requests)
}

func (q *pileQueue) full() bool {
	return len(q.requests) >= q.capacity
}

// push appends a request and, if nothing is being served, promotes the head
// to executing with its begin time stamped at now.
func (q *pileQueue) push(r *request, now time.Time) {
	q.requests = append(q.requests, r)
	if q.executing() == nil {
		q.promote(now)
	}
}

// promote marks the current head executing and stamps its begin time.
func (q *pileQueue) promote(now time.Time) {
	if len(q.requests) == 0 {
		return
	}
	head := q.requests[0]
	head.phase = phaseExecuting
	head.beginTime = now
	head.pileID = q.pileID
}

// remove deletes a request by id while preserving order. Evicting the head
// promotes the next request, which begins executing at now.
func (q *pileQueue) remove(id uint16, now time.Time) bool {
	idx := q.indexOf(id)
	if idx < 0 {
		return false
	}
	if idx == 0 {
		q.requests = q.requests[1:]
		q.promote(now)
		return true
	}
	q.requests = append(q.requests[:idx], q.requests[idx+1:]...)
	return true
}

// positionOf returns the 0-based queue index of a request, -1 if absent.
func (q *pileQueue) positionOf(id uint16) int {
	return q.indexOf(id)
}

func (q *pileQueue) indexOf(id uint16) int {
	for i, r := range q.requests {
		if r.id == id {
			return i
		}
	}
	return -1
}

// estimatedFinishSeconds sums the serving time of everything queued at the
// given power rating. The executing head contributes its full original
// amount rather than its remaining energy; dispatch compares piles with the
// same pessimism everywhere, so the relative ordering is unaffected.
func (q *pileQueue) estimatedFinishSeconds(powerKW float64) float64 {
	total := 0.0
	for _, r := range q.requests {
		total += r.amount.InexactFloat64() / powerKW * 3600
	}
	return total
}

// fetchAndClear removes and returns the queued requests. With
// includeExecuting the executing head is taken as well; otherwise it stays
// behind as the sole occupant.
func (q *pileQueue) fetchAndClear(includeExecuting bool) []*request {
	if includeExecuting || q.executing() == nil {
		out := q.requests
		q.requests = nil
		return out
	}
	out := append([]*request(nil), q.requests[1:]...)
	q.requests = []*request{q.requests[0]}
	return out
}
