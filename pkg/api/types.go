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

// Package api holds the data model shared by the station control plane:
// pile inventory, settled orders and the request-status shapes returned
// to callers. Wire encoding and storage layout are the concern of the
// packages that consume these types.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// PileKind discriminates the two charging speeds a pile can serve. A request
// is bound to exactly one kind for its whole lifetime.
type PileKind string

const (
	PileKindSlow PileKind = "slow"
	PileKindFast PileKind = "fast"
)

// PileStatus is the operational state reported for a pile. Anything other
// than running is treated as broken by the scheduler.
type PileStatus string

const (
	PileStatusRunning     PileStatus = "running"
	PileStatusShutdown    PileStatus = "shutdown"
	PileStatusUnavailable PileStatus = "unavailable"
)

// Broken reports whether the status takes the pile out of scheduling.
func (s PileStatus) Broken() bool {
	return s != PileStatusRunning
}

// Pile is a single charging pile with its lifetime counters. The counters
// are bumped at every settlement and survive restarts through the pile
// store.
type Pile struct {
	ID     uint32     `json:"pileId"`
	Kind   PileKind   `json:"kind"`
	Status PileStatus `json:"status"`

	CumulativeUsageTimes      int             `json:"cumulativeUsageTimes"`
	CumulativeChargingSeconds int64           `json:"cumulativeChargingSeconds"`
	CumulativeChargedAmount   decimal.Decimal `json:"cumulativeChargedAmount"`
}

// Order is one settled charging session. BeginTime carries the request's
// admission time rather than the moment charging started; downstream
// consumers depend on that layout.
type Order struct {
	ID             string          `json:"orderId"`
	Username       string          `json:"username"`
	PileID         uint32          `json:"pileId"`
	CreateTime     time.Time       `json:"createTime"`
	BeginTime      time.Time       `json:"beginTime"`
	EndTime        time.Time       `json:"endTime"`
	ChargedAmount  decimal.Decimal `json:"chargedAmount"`
	ChargedSeconds int64           `json:"chargedSeconds"`
	ChargingCost   decimal.Decimal `json:"chargingCost"`
	ServiceCost    decimal.Decimal `json:"serviceCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
}

// RequestState is the externally visible stage of a charging request.
type RequestState string

const (
	RequestStateNotCharging       RequestState = "NOT_CHARGING"
	RequestStateWaitingStage1     RequestState = "WAITING_STAGE1"
	RequestStateWaitingStage2     RequestState = "WAITING_STAGE2"
	RequestStateCharging          RequestState = "CHARGING"
	RequestStateChangeModeRequeue RequestState = "CHANGE_MODE_REQUEUE"
	RequestStateFailRequeue       RequestState = "FAIL_REQUEUE"
)

// RequestStatus answers a status query for one request. Position is the
// 0-based place in whichever queue currently holds the request, or -1 when
// the request is gone. PileID is nil until the request is assigned.
type RequestStatus struct {
	State    RequestState `json:"state"`
	Position int          `json:"position"`
	PileID   *uint32      `json:"pileId,omitempty"`
}

// RequestInfo is one row of the admin snapshot of outstanding requests.
type RequestInfo struct {
	RequestID      uint16          `json:"requestId"`
	PileID         *uint32         `json:"pileId,omitempty"`
	Username       string          `json:"username"`
	Kind           PileKind        `json:"kind"`
	BatteryKWh     decimal.Decimal `json:"batterySize"`
	AmountKWh      decimal.Decimal `json:"requireAmount"`
	WaitingSeconds int64           `json:"waitingTime"`
}
