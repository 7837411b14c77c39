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

// waitingQueue is one kind's FIFO of unassigned requests. Cancelled
// requests stay in the slice as tombstones until they reach the front; the
// live counter is the admission-relevant length and is maintained at
// tombstone time, not at physical removal.
type waitingQueue struct {
	requests []*request
	live     int
}

func (q *waitingQueue) push(r *request) {
	q.requests = append(q.requests, r)
	q.live++
}

// pop returns the first live request, discarding any tombstones ahead of
// it. Returns nil when nothing live remains.
func (q *waitingQueue) pop() *request {
	for len(q.requests) > 0 && q.requests[0].phase == phaseTombstone {
		q.requests = q.requests[1:]
	}
	if len(q.requests) == 0 {
		return nil
	}
	r := q.requests[0]
	q.requests = q.requests[1:]
	q.live--
	return r
}

// positionOf counts the live requests ahead of id. Returns -1 if the id is
// not present.
func (q *waitingQueue) positionOf(id uint16) int {
	pos := 0
	for _, r := range q.requests {
		if r.id == id {
			return pos
		}
		if r.phase == phaseTombstone {
			continue
		}
		pos++
	}
	return -1
}
