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

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/storage"
)

// Biller settles finished (or cancelled-while-charging) requests into
// orders and keeps the pile lifetime counters current.
type Biller struct {
	tariff Tariff
	orders storage.OrderStore
	piles  storage.PileStore
	log    logr.Logger
}

// NewBiller returns a Biller writing through the given stores.
func NewBiller(log logr.Logger, tariff Tariff, orders storage.OrderStore, piles storage.PileStore) *Biller {
	return &Biller{
		tariff: tariff,
		orders: orders,
		piles:  piles,
		log:    log,
	}
}

// Tariff returns the price table the biller settles against.
func (b *Biller) Tariff() Tariff {
	return b.tariff
}

// CreateOrder settles one charging session: it prices [createTime, endTime]
// for the requested amount, persists the order and bumps the pile counters.
// The order's begin time and charged seconds are measured from the
// request's admission, and the charged amount is the requested amount, both
// kept for compatibility with the billing records existing consumers parse.
func (b *Biller) CreateOrder(ctx context.Context, username string, pileID uint32, amount decimal.Decimal, createTime, endTime time.Time) (*api.Order, error) {
	total, charging, service := b.tariff.CalcCost(createTime, endTime, amount)
	order := &api.Order{
		ID:             uuid.NewString(),
		Username:       username,
		PileID:         pileID,
		CreateTime:     createTime,
		BeginTime:      createTime,
		EndTime:        endTime,
		ChargedAmount:  amount,
		ChargedSeconds: int64(endTime.Sub(createTime).Seconds()),
		ChargingCost:   charging,
		ServiceCost:    service,
		TotalCost:      total,
	}
	if err := b.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("persisting order %s: %w", order.ID, err)
	}
	pile, err := b.piles.Get(ctx, pileID)
	if err != nil {
		return nil, fmt.Errorf("loading pile %d for settlement: %w", pileID, err)
	}
	pile.CumulativeUsageTimes++
	pile.CumulativeChargingSeconds += order.ChargedSeconds
	pile.CumulativeChargedAmount = pile.CumulativeChargedAmount.Add(amount)
	if err := b.piles.Update(ctx, pile); err != nil {
		return nil, fmt.Errorf("updating pile %d counters: %w", pileID, err)
	}

	ordersCreated.Inc()
	chargedKWh.Add(amount.InexactFloat64())
	revenue.Add(total.InexactFloat64())
	b.log.Info("order settled",
		"order", order.ID,
		"user", username,
		"pile", pileID,
		"amount", amount.String(),
		"total", total.String(),
	)
	return order, nil
}
