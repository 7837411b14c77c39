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

package billing_test

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/billing"
	"github.com/chargectl/chargectl/pkg/storage"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Biller", func() {
	var biller *billing.Biller
	var orders *storage.MemoryOrderStore
	var piles *storage.MemoryPileStore

	BeforeEach(func() {
		orders = storage.NewMemoryOrderStore()
		piles = storage.NewMemoryPileStore([]*api.Pile{{
			ID:                      7,
			Kind:                    api.PileKindFast,
			Status:                  api.PileStatusRunning,
			CumulativeChargedAmount: decimal.Zero,
		}})
		biller = billing.NewBiller(logr.Discard(), billing.DefaultTariff(), orders, piles)
	})

	It("should persist a priced order for the session", func() {
		begin := at(10, 0)
		end := begin.Add(10 * time.Minute)
		order, err := biller.CreateOrder(ctx, "alice", 7, decimal.RequireFromString("10"), begin, end)
		Expect(err).ToNot(HaveOccurred())

		Expect(order.ID).ToNot(BeEmpty())
		Expect(order.Username).To(Equal("alice"))
		Expect(order.PileID).To(Equal(uint32(7)))
		Expect(order.CreateTime).To(Equal(begin))
		Expect(order.BeginTime).To(Equal(begin))
		Expect(order.EndTime).To(Equal(end))
		Expect(order.ChargedSeconds).To(Equal(int64(600)))
		Expect(order.ChargingCost.StringFixed(2)).To(Equal("10.00"))
		Expect(order.ServiceCost.StringFixed(2)).To(Equal("8.00"))
		Expect(order.TotalCost.StringFixed(2)).To(Equal("18.00"))

		saved, err := orders.ByUser(ctx, "alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(saved).To(HaveLen(1))
		Expect(saved[0].ID).To(Equal(order.ID))
	})
	It("should accumulate the pile lifetime counters across sessions", func() {
		begin := at(10, 0)
		_, err := biller.CreateOrder(ctx, "alice", 7, decimal.RequireFromString("10"), begin, begin.Add(10*time.Minute))
		Expect(err).ToNot(HaveOccurred())
		_, err = biller.CreateOrder(ctx, "bob", 7, decimal.RequireFromString("5"), begin, begin.Add(5*time.Minute))
		Expect(err).ToNot(HaveOccurred())

		pile, err := piles.Get(ctx, 7)
		Expect(err).ToNot(HaveOccurred())
		Expect(pile.CumulativeUsageTimes).To(Equal(2))
		Expect(pile.CumulativeChargingSeconds).To(Equal(int64(900)))
		Expect(pile.CumulativeChargedAmount.Equal(decimal.RequireFromString("15"))).To(BeTrue())
	})
	It("should fail the settlement when the pile is unknown", func() {
		begin := at(10, 0)
		_, err := biller.CreateOrder(ctx, "alice", 99, decimal.RequireFromString("10"), begin, begin.Add(10*time.Minute))
		Expect(err).To(MatchError(storage.ErrPileNotFound))
	})
})
