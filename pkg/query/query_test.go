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

package query_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/query"
	"github.com/chargectl/chargectl/pkg/storage"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var orders *storage.MemoryOrderStore
	var piles *storage.MemoryPileStore
	now := time.Date(2024, time.May, 12, 8, 0, 0, 0, time.UTC)

	newOrder := func(id, user string, pileID uint32, createOffset time.Duration, charging, service string) *api.Order {
		chargingCost := decimal.RequireFromString(charging)
		serviceCost := decimal.RequireFromString(service)
		return &api.Order{
			ID:           id,
			Username:     user,
			PileID:       pileID,
			CreateTime:   now.Add(createOffset),
			ChargingCost: chargingCost,
			ServiceCost:  serviceCost,
			TotalCost:    chargingCost.Add(serviceCost),
		}
	}

	BeforeEach(func() {
		orders = storage.NewMemoryOrderStore()
		piles = storage.NewMemoryPileStore([]*api.Pile{
			{ID: 1, Kind: api.PileKindSlow, Status: api.PileStatusRunning, CumulativeUsageTimes: 2, CumulativeChargedAmount: decimal.RequireFromString("10")},
			{ID: 2, Kind: api.PileKindFast, Status: api.PileStatusRunning, CumulativeChargedAmount: decimal.Zero},
		})
		Expect(orders.Save(ctx, newOrder("b", "alice", 1, time.Minute, "1.00", "2.00"))).To(Succeed())
		Expect(orders.Save(ctx, newOrder("a", "alice", 1, 0, "3.00", "4.00"))).To(Succeed())
		Expect(orders.Save(ctx, newOrder("c", "bob", 2, 2*time.Minute, "5.00", "6.00"))).To(Succeed())
	})

	It("should return a user's orders oldest first", func() {
		got, err := query.NewService(orders, piles).OrdersByUser(ctx, "alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal("a"))
		Expect(got[1].ID).To(Equal("b"))
	})
	It("should list the pile inventory with its counters", func() {
		got, err := query.NewService(orders, piles).PileStatuses(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].CumulativeUsageTimes).To(Equal(2))
	})
	It("should aggregate per-pile earnings across all orders", func() {
		report, err := query.NewService(orders, piles).Report(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(report).To(HaveLen(2))

		Expect(report[0].PileID).To(Equal(uint32(1)))
		Expect(report[0].CumulativeChargingEarning.StringFixed(2)).To(Equal("4.00"))
		Expect(report[0].CumulativeServiceEarning.StringFixed(2)).To(Equal("6.00"))
		Expect(report[0].CumulativeEarning.StringFixed(2)).To(Equal("10.00"))
		Expect(report[1].PileID).To(Equal(uint32(2)))
		Expect(report[1].CumulativeEarning.StringFixed(2)).To(Equal("11.00"))
	})
	It("should serve the report from cache within the TTL", func() {
		service := query.NewServiceWithTTL(orders, piles, time.Hour)
		first, err := service.Report(ctx)
		Expect(err).ToNot(HaveOccurred())

		Expect(orders.Save(ctx, newOrder("d", "bob", 2, 3*time.Minute, "100.00", "0.00"))).To(Succeed())
		second, err := service.Report(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(second[1].CumulativeEarning.Equal(first[1].CumulativeEarning)).To(BeTrue())
	})
	It("should recompute the report after the TTL expires", func() {
		service := query.NewServiceWithTTL(orders, piles, time.Millisecond)
		_, err := service.Report(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(orders.Save(ctx, newOrder("d", "bob", 2, 3*time.Minute, "100.00", "0.00"))).To(Succeed())

		Eventually(func(g Gomega) {
			report, err := service.Report(ctx)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(report[1].CumulativeEarning.StringFixed(2)).To(Equal("111.00"))
		}).Should(Succeed())
	})
})
