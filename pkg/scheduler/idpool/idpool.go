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

// Package idpool hands out small recyclable request identifiers. The ids are
// user-visible (they show up as labels like "F42"), so they must stay small
// and be reused after release; a monotone counter is not an option here.
package idpool

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by Alloc once every id in the pool is live.
var ErrExhausted = errors.New("id pool exhausted")

// Pool is a fixed-size bitmap allocator with a rolling cursor. The cursor
// parks on the most recent allocation, so consecutive allocations march
// forward through the id space while the pool stays busy.
type Pool struct {
	mu     sync.Mutex
	flags  []bool
	cursor int
}

// New returns a pool of ids in [0, size).
func New(size int) *Pool {
	return &Pool{flags: make([]bool, size)}
}

// Alloc returns the first free id at or after the cursor, wrapping once
// around the pool before giving up with ErrExhausted.
func (p *Pool) Alloc() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < len(p.flags); i++ {
		idx := (p.cursor + i) % len(p.flags)
		if !p.flags[idx] {
			p.flags[idx] = true
			p.cursor = idx
			return uint16(idx), nil
		}
	}
	return 0, ErrExhausted
}

// Free releases an id back to the pool. Freeing an id that is not allocated
// is a no-op.
func (p *Pool) Free(id uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(id) < len(p.flags) {
		p.flags[id] = false
	}
}

// Live returns the number of currently allocated ids.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := 0
	for _, used := range p.flags {
		if used {
			live++
		}
	}
	return live
}
