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

// Package scheduler is the dispatch engine of the charging station. It
// admits requests into a bounded waiting area, assigns them to the pile
// with the shortest estimated finish time, drives each pile's short queue,
// settles completed sessions through billing and re-distributes outstanding
// work when a pile goes down or comes back.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/clock"
	"github.com/chargectl/chargectl/pkg/scheduler/idpool"
)

// Policy selects how a brake rebuilds outstanding work.
type Policy string

const (
	// PolicyTimeOrdered pools the queued requests of every pile of the
	// braked kind and re-dispatches them in admission order.
	PolicyTimeOrdered Policy = "time-ordered"
	// PolicyPriority re-dispatches only the braked pile's own queue, in its
	// existing order.
	PolicyPriority Policy = "priority"
)

// mode is the scheduler's dispatch regime. Outside modeNormal the recovery
// queue is drained before (and instead of) waiting-area dispatch for the
// affected kind.
type mode int

const (
	modeNormal mode = iota
	modePriority
	modeTimeOrdered
	modeRecovery
)

// Biller settles one finished session into a persisted order.
type Biller interface {
	CreateOrder(ctx context.Context, username string, pileID uint32, amount decimal.Decimal, createTime, endTime time.Time) (*api.Order, error)
}

// Options are the scheduler tunables.
type Options struct {
	WaitingAreaCapacity int
	PileQueueCapacity   int
	MaxIDs              int
	SlowPowerKW         float64
	FastPowerKW         float64
	RecoveryPolicy      Policy
}

// DefaultOptions returns the station defaults.
func DefaultOptions() Options {
	return Options{
		WaitingAreaCapacity: 20,
		PileQueueCapacity:   5,
		MaxIDs:              1000,
		SlowPowerKW:         30,
		FastPowerKW:         60,
		RecoveryPolicy:      PolicyTimeOrdered,
	}
}

// Scheduler owns all in-flight request state. Two locks guard it: mu is the
// primary lock over every index and queue; checkMu is the coarser control
// lock serializing brake, recover and the completion sweep so an operator
// rewiring queues cannot race a mid-flight settlement. checkMu is always
// acquired before mu, never the reverse.
type Scheduler struct {
	opts   Options
	log    logr.Logger
	clk    clock.Clock
	biller Biller

	checkMu sync.Mutex
	mu      sync.Mutex

	ids        *idpool.Pool
	piles      map[uint32]*pileQueue
	pileIDs    []uint32
	requests   map[uint16]*request
	byUser     map[string]uint16
	waiting    map[api.PileKind]*waitingQueue
	mode       mode
	brokenPile uint32
	recovery   []*request
}

// New builds a scheduler over the given pile inventory. Piles whose status
// is not running start out broken and receive no work until recovered.
func New(log logr.Logger, clk clock.Clock, biller Biller, piles []*api.Pile, opts Options) (*Scheduler, error) {
	if len(piles) == 0 {
		return nil, fmt.Errorf("scheduler needs at least one pile")
	}
	s := &Scheduler{
		opts:     opts,
		log:      log,
		clk:      clk,
		biller:   biller,
		ids:      idpool.New(opts.MaxIDs),
		piles:    map[uint32]*pileQueue{},
		requests: map[uint16]*request{},
		byUser:   map[string]uint16{},
		waiting: map[api.PileKind]*waitingQueue{
			api.PileKindSlow: {},
			api.PileKindFast: {},
		},
	}
	for _, pile := range piles {
		if _, dup := s.piles[pile.ID]; dup {
			return nil, fmt.Errorf("duplicate pile id %d", pile.ID)
		}
		s.piles[pile.ID] = newPileQueue(pile, opts.PileQueueCapacity)
		s.pileIDs = append(s.pileIDs, pile.ID)
	}
	sort.Slice(s.pileIDs, func(i, j int) bool { return s.pileIDs[i] < s.pileIDs[j] })
	return s, nil
}

// SubmitRequest admits a charging request into the waiting area of its kind
// and runs a dispatch pass.
func (s *Scheduler) SubmitRequest(ctx context.Context, kind api.PileKind, username string, amount, battery decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(ctx, kind, username, amount, battery, false)
}

func (s *Scheduler) submitLocked(_ context.Context, kind api.PileKind, username string, amount, battery decimal.Decimal, requeue bool) error {
	if _, live := s.byUser[username]; live {
		return fmt.Errorf("submitting for %q: %w", username, ErrAlreadyRequested)
	}
	if s.waiting[api.PileKindSlow].live+s.waiting[api.PileKindFast].live >= s.opts.WaitingAreaCapacity {
		return fmt.Errorf("submitting for %q: %w", username, ErrOutOfSpace)
	}
	id, err := s.ids.Alloc()
	if err != nil {
		return fmt.Errorf("submitting for %q: %w", username, ErrOutOfIDs)
	}
	r := &request{
		id:         id,
		username:   username,
		kind:       kind,
		amount:     amount,
		battery:    battery,
		createTime: s.clk.Now(),
		phase:      phaseWaiting,
		requeue:    requeue,
	}
	s.requests[id] = r
	s.byUser[username] = id
	s.waiting[kind].push(r)
	requestsSubmitted.WithLabelValues(string(kind)).Inc()
	s.log.V(1).Info("request submitted", "request", r.label(), "user", username, "kind", kind, "amount", amount.String())

	s.tryScheduleLocked()
	return nil
}

// EndRequest removes a request: plain cancellation for anything not yet
// charging, settlement into an order for an executing request. Both paths
// free the id, drop the username binding and trigger a dispatch pass when a
// pile slot opened up.
func (s *Scheduler) EndRequest(ctx context.Context, id uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endRequestLocked(ctx, id)
}

func (s *Scheduler) endRequestLocked(ctx context.Context, id uint16) error {
	r, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("ending request %d: %w", id, ErrMappingNotExisted)
	}
	delete(s.requests, id)
	delete(s.byUser, r.username)
	s.ids.Free(id)
	prev := r.phase
	r.phase = phaseTombstone

	switch prev {
	case phaseWaiting:
		// The husk stays in the waiting slice until lazy cleanup; only the
		// admission-relevant live counter moves now.
		s.waiting[r.kind].live--
		requestsEnded.WithLabelValues(endedCancelled).Inc()
		s.log.V(1).Info("request cancelled", "request", r.label())
		return nil
	case phaseFailRequeue:
		s.recovery = lo.Reject(s.recovery, func(other *request, _ int) bool { return other.id == id })
		if len(s.recovery) == 0 && s.mode != modeNormal {
			s.mode = modeNormal
		}
		requestsEnded.WithLabelValues(endedCancelled).Inc()
		s.log.V(1).Info("request cancelled in recovery queue", "request", r.label())
		return nil
	}

	queue, ok := s.piles[r.pileID]
	if !ok {
		// Broken invariant; there is nothing sensible to recover to.
		panic(fmt.Sprintf("request %d assigned to unknown pile %d", id, r.pileID))
	}
	queue.remove(id, s.clk.Now())

	if prev == phaseExecuting {
		outcome := endedCompleted
		if !s.completedLocked(r) {
			outcome = endedCancelledCharging
			s.log.V(1).Info("request cancelled while executing", "request", r.label(), "pile", r.pileID)
		}
		if _, err := s.biller.CreateOrder(ctx, r.username, r.pileID, r.amount, r.createTime, s.clk.Now()); err != nil {
			return fmt.Errorf("settling request %d: %w", id, err)
		}
		requestsEnded.WithLabelValues(outcome).Inc()
	} else {
		requestsEnded.WithLabelValues(endedCancelled).Inc()
		s.log.V(1).Info("request cancelled in pile queue", "request", r.label(), "pile", r.pileID)
	}

	s.tryScheduleLocked()
	return nil
}

// UpdateRequest changes the amount or kind of a request that is still in
// the waiting area. Same-kind updates mutate in place; a kind change ends
// the request and re-admits it at the tail of the new kind's queue with the
// requeue flag set.
func (s *Scheduler) UpdateRequest(ctx context.Context, id uint16, amount decimal.Decimal, kind api.PileKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("updating request %d: %w", id, ErrMappingNotExisted)
	}
	if r.phase == phaseQueued || r.phase == phaseExecuting {
		return fmt.Errorf("updating request %d: %w", id, ErrIllegalUpdate)
	}
	if r.kind == kind {
		r.amount = amount
		return nil
	}
	username, battery := r.username, r.battery
	if err := s.endRequestLocked(ctx, id); err != nil {
		return err
	}
	return s.submitLocked(ctx, kind, username, amount, battery, true)
}

// RequestIDByUsername resolves the user's live request id.
func (s *Scheduler) RequestIDByUsername(username string) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[username]
	if !ok {
		return 0, fmt.Errorf("resolving user %q: %w", username, ErrMappingNotExisted)
	}
	return id, nil
}

// RequestStatus reports the externally visible stage, queue position and
// pile of one request.
func (s *Scheduler) RequestStatus(id uint16) (*api.RequestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("querying request %d: %w", id, ErrMappingNotExisted)
	}
	switch r.phase {
	case phaseTombstone:
		return &api.RequestStatus{State: api.RequestStateNotCharging, Position: -1}, nil
	case phaseExecuting:
		return &api.RequestStatus{State: api.RequestStateCharging, Position: 0, PileID: lo.ToPtr(r.pileID)}, nil
	case phaseFailRequeue:
		_, pos, _ := lo.FindIndexOf(s.recovery, func(other *request) bool { return other.id == id })
		return &api.RequestStatus{State: api.RequestStateFailRequeue, Position: pos}, nil
	case phaseQueued:
		return &api.RequestStatus{
			State:    api.RequestStateWaitingStage2,
			Position: s.piles[r.pileID].positionOf(id),
			PileID:   lo.ToPtr(r.pileID),
		}, nil
	}

	state := api.RequestStateWaitingStage1
	if r.requeue {
		state = api.RequestStateChangeModeRequeue
	}
	// Pessimistic "ahead of me" estimate: live predecessors in the waiting
	// area plus the deepest pile queue anywhere in the station.
	pos := s.waiting[r.kind].positionOf(id)
	pos += lo.Max(lo.Map(s.pileIDs, func(pid uint32, _ int) int { return s.piles[pid].used() }))
	return &api.RequestStatus{State: state, Position: pos}, nil
}

// Snapshot lists every outstanding request for the admin monitor, ordered
// by request id.
func (s *Scheduler) Snapshot() []*api.RequestInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	ids := lo.Keys(s.requests)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return lo.Map(ids, func(id uint16, _ int) *api.RequestInfo {
		r := s.requests[id]
		info := &api.RequestInfo{
			RequestID:      r.id,
			Username:       r.username,
			Kind:           r.kind,
			BatteryKWh:     r.battery,
			AmountKWh:      r.amount,
			WaitingSeconds: int64(now.Sub(r.createTime).Seconds()),
		}
		if r.phase == phaseQueued || r.phase == phaseExecuting {
			info.PileID = lo.ToPtr(r.pileID)
		}
		return info
	})
}

// Brake takes a pile out of service. An executing request settles first;
// the remaining displaced requests are pooled into the recovery queue per
// the configured policy and re-dispatched ahead of normal waiting-area
// traffic.
func (s *Scheduler) Brake(ctx context.Context, pileID uint32) error {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	queue, ok := s.piles[pileID]
	if !ok {
		return fmt.Errorf("braking pile %d: %w", pileID, ErrPileNotFound)
	}
	s.log.Info("pile is down", "pile", pileID)
	queue.broken = true
	s.mode = lo.Ternary(s.opts.RecoveryPolicy == PolicyPriority, modePriority, modeTimeOrdered)
	s.brokenPile = pileID

	// Settle the head before collecting the queue, otherwise it would be
	// both billed and re-queued.
	if ex := queue.executing(); ex != nil {
		if err := s.endRequestLocked(ctx, ex.id); err != nil {
			return err
		}
	}

	var displaced []*request
	switch s.mode {
	case modePriority:
		displaced = queue.fetchAndClear(true)
		s.installRecoveryLocked(displaced, false)
	default:
		for _, pid := range s.pileIDs {
			other := s.piles[pid]
			if other.kind != queue.kind {
				continue
			}
			displaced = append(displaced, other.fetchAndClear(pid == pileID)...)
		}
		s.installRecoveryLocked(displaced, true)
	}

	s.tryScheduleLocked()
	if len(s.recovery) == 0 && s.mode != modeNormal {
		s.mode = modeNormal
	}
	return nil
}

// Recover brings a pile back. The non-executing tails of every pile of its
// kind are re-pooled in admission order so the recovered pile gets its fair
// share; executing requests elsewhere continue undisturbed. The queue is
// drained by the next dispatch pass.
func (s *Scheduler) Recover(_ context.Context, pileID uint32) error {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	queue, ok := s.piles[pileID]
	if !ok {
		return fmt.Errorf("recovering pile %d: %w", pileID, ErrPileNotFound)
	}
	s.log.Info("pile is up", "pile", pileID)
	queue.broken = false
	s.mode = modeRecovery
	s.brokenPile = pileID

	var displaced []*request
	for _, pid := range s.pileIDs {
		other := s.piles[pid]
		if other.kind != queue.kind {
			continue
		}
		displaced = append(displaced, other.fetchAndClear(false)...)
	}
	s.installRecoveryLocked(displaced, true)
	if len(s.recovery) == 0 {
		s.mode = modeNormal
	}
	s.updateGaugesLocked()
	return nil
}

// SettleCompleted sweeps every pile's executing head and settles the ones
// whose elapsed time at pile power covers the requested amount. The control
// lock is held for the whole sweep so brake/recover cannot rewire queues
// mid-settlement.
func (s *Scheduler) SettleCompleted(ctx context.Context) error {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	var due []uint16
	s.mu.Lock()
	for _, pid := range s.pileIDs {
		if ex := s.piles[pid].executing(); ex != nil && s.completedLocked(ex) {
			due = append(due, ex.id)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		s.mu.Lock()
		err := s.endRequestLocked(ctx, id)
		s.mu.Unlock()
		// A concurrent user cancellation may get there first; the request
		// is gone either way.
		if err != nil && !errors.Is(err, ErrMappingNotExisted) {
			return err
		}
	}
	return nil
}

// installRecoveryLocked parks displaced requests in the recovery queue,
// sorted by admission time (ties by id) when ordered is set.
func (s *Scheduler) installRecoveryLocked(displaced []*request, ordered bool) {
	for _, r := range displaced {
		r.pileID = 0
		r.phase = phaseFailRequeue
		s.log.V(1).Info("request moved to recovery queue", "request", r.label())
	}
	if ordered {
		sort.Slice(displaced, func(i, j int) bool {
			if !displaced[i].createTime.Equal(displaced[j].createTime) {
				return displaced[i].createTime.Before(displaced[j].createTime)
			}
			return displaced[i].id < displaced[j].id
		})
	}
	s.recovery = displaced
}

// tryScheduleLocked is the dispatch pass. Outside normal mode it first
// drains the recovery queue into non-broken piles of the affected kind and
// holds back that kind's waiting area until the queue is empty; then it
// moves waiting requests of each (unskipped) kind onto the pile with the
// shortest estimated finish time.
func (s *Scheduler) tryScheduleLocked() {
	var skip api.PileKind
	if s.mode != modeNormal {
		kind := s.piles[s.brokenPile].kind
		skip = kind
		if len(s.recovery) > 0 {
			for len(s.recovery) > 0 {
				target := s.findFastestSparePileLocked(kind)
				if target == nil {
					break
				}
				r := s.recovery[0]
				s.recovery = s.recovery[1:]
				r.phase = phaseQueued
				r.pileID = target.pileID
				target.push(r, s.clk.Now())
				s.log.V(1).Info("displaced request re-dispatched", "request", r.label(), "pile", target.pileID)
			}
			if len(s.recovery) == 0 {
				s.mode = modeNormal
				skip = ""
				s.log.V(1).Info("recovery queue drained, normal dispatch resumed")
			}
		}
	}

	for _, kind := range []api.PileKind{api.PileKindSlow, api.PileKindFast} {
		if kind == skip {
			continue
		}
		s.scheduleKindLocked(kind)
	}
	s.updateGaugesLocked()
}

func (s *Scheduler) scheduleKindLocked(kind api.PileKind) {
	for {
		target := s.findFastestSparePileLocked(kind)
		if target == nil {
			return
		}
		r := s.waiting[kind].pop()
		if r == nil {
			return
		}
		r.phase = phaseQueued
		r.pileID = target.pileID
		target.push(r, s.clk.Now())
		s.log.V(1).Info("request dispatched", "request", r.label(), "pile", target.pileID)
	}
}

// findFastestSparePileLocked picks the non-broken pile of the kind with
// room and the smallest estimated finish time, ties broken by lowest id.
func (s *Scheduler) findFastestSparePileLocked(kind api.PileKind) *pileQueue {
	var best *pileQueue
	shortest := 0.0
	for _, pid := range s.pileIDs {
		queue := s.piles[pid]
		if queue.broken || queue.kind != kind || queue.full() {
			continue
		}
		cost := queue.estimatedFinishSeconds(s.power(kind))
		if best == nil || cost < shortest {
			best = queue
			shortest = cost
		}
	}
	return best
}

// completedLocked tests whether the executing request's session is over:
// now >= begin + amount / power hours.
func (s *Scheduler) completedLocked(r *request) bool {
	need := time.Duration(r.amount.InexactFloat64() / s.power(r.kind) * 3600 * float64(time.Second))
	return !s.clk.Now().Before(r.beginTime.Add(need))
}

func (s *Scheduler) power(kind api.PileKind) float64 {
	if kind == api.PileKindFast {
		return s.opts.FastPowerKW
	}
	return s.opts.SlowPowerKW
}

func (s *Scheduler) updateGaugesLocked() {
	for kind, queue := range s.waiting {
		waitingAreaSize.WithLabelValues(string(kind)).Set(float64(queue.live))
	}
	recoveryQueueDepth.Set(float64(len(s.recovery)))
	for _, pid := range s.pileIDs {
		pileQueueDepth.WithLabelValues(fmt.Sprint(pid)).Set(float64(s.piles[pid].used()))
	}
}
