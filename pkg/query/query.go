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

// Package query serves the read-only admin and user lookups: order history,
// pile status and the cumulative earnings report.
package query

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/storage"
)

const (
	reportCacheKey = "station-report"

	// DefaultReportTTL bounds how stale the aggregated earnings report may
	// be; the aggregation walks every order, so it is not recomputed per
	// request.
	DefaultReportTTL = 10 * time.Second
)

// PileReport is one pile's row of the station earnings report.
type PileReport struct {
	PileID                    uint32          `json:"pileId"`
	CumulativeUsageTimes      int             `json:"cumulativeUsageTimes"`
	CumulativeChargingSeconds int64           `json:"cumulativeChargingSeconds"`
	CumulativeChargedAmount   decimal.Decimal `json:"cumulativeChargedAmount"`
	CumulativeChargingEarning decimal.Decimal `json:"cumulativeChargingEarning"`
	CumulativeServiceEarning  decimal.Decimal `json:"cumulativeServiceEarning"`
	CumulativeEarning         decimal.Decimal `json:"cumulativeEarning"`
}

// Service answers the station's read-only queries.
type Service struct {
	orders storage.OrderStore
	piles  storage.PileStore
	cache  *cache.Cache
}

// NewService returns a query service with the default report TTL.
func NewService(orders storage.OrderStore, piles storage.PileStore) *Service {
	return NewServiceWithTTL(orders, piles, DefaultReportTTL)
}

// NewServiceWithTTL returns a query service caching the earnings report for
// the given TTL.
func NewServiceWithTTL(orders storage.OrderStore, piles storage.PileStore, ttl time.Duration) *Service {
	return &Service{
		orders: orders,
		piles:  piles,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// OrdersByUser returns a user's settled orders, oldest first.
func (s *Service) OrdersByUser(ctx context.Context, username string) ([]*api.Order, error) {
	orders, err := s.orders.ByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreateTime.Before(orders[j].CreateTime) })
	return orders, nil
}

// PileStatuses returns every pile with its lifetime counters.
func (s *Service) PileStatuses(ctx context.Context) ([]*api.Pile, error) {
	return s.piles.List(ctx)
}

// Report aggregates per-pile earnings across all settled orders. Results
// are cached for the service's TTL.
func (s *Service) Report(ctx context.Context) ([]*PileReport, error) {
	if cached, ok := s.cache.Get(reportCacheKey); ok {
		return cached.([]*PileReport), nil
	}
	piles, err := s.piles.List(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.All(ctx)
	if err != nil {
		return nil, err
	}

	byPile := map[uint32]*PileReport{}
	var report []*PileReport
	for _, pile := range piles {
		row := &PileReport{
			PileID:                    pile.ID,
			CumulativeUsageTimes:      pile.CumulativeUsageTimes,
			CumulativeChargingSeconds: pile.CumulativeChargingSeconds,
			CumulativeChargedAmount:   pile.CumulativeChargedAmount,
			CumulativeChargingEarning: decimal.Zero,
			CumulativeServiceEarning:  decimal.Zero,
			CumulativeEarning:         decimal.Zero,
		}
		byPile[pile.ID] = row
		report = append(report, row)
	}
	for _, order := range orders {
		row, ok := byPile[order.PileID]
		if !ok {
			continue
		}
		row.CumulativeChargingEarning = row.CumulativeChargingEarning.Add(order.ChargingCost)
		row.CumulativeServiceEarning = row.CumulativeServiceEarning.Add(order.ServiceCost)
		row.CumulativeEarning = row.CumulativeEarning.Add(order.TotalCost)
	}

	s.cache.SetDefault(reportCacheKey, report)
	return report, nil
}
