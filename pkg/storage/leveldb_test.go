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

package storage_test

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/shopspring/decimal"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/storage"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LevelDBStore", func() {
	var store *storage.LevelDBStore
	var path string
	seed := []*api.Pile{
		testPile(1, api.PileKindSlow),
		testPile(2, api.PileKindFast),
	}

	BeforeEach(func() {
		path = GinkgoT().TempDir()
		var err error
		store, err = storage.OpenLevelDB(logr.Discard(), path, seed)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() {
			Expect(store.Close()).To(Succeed())
		})
	})

	It("should seed and list the pile inventory", func() {
		piles, err := store.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(piles).To(HaveLen(2))
		Expect(piles[0].ID).To(Equal(uint32(1)))
		Expect(piles[0].Kind).To(Equal(api.PileKindSlow))
		Expect(piles[1].ID).To(Equal(uint32(2)))
	})
	It("should report unknown piles", func() {
		_, err := store.Get(ctx, 99)
		Expect(err).To(MatchError(storage.ErrPileNotFound))
		Expect(store.Update(ctx, testPile(99, api.PileKindSlow))).To(MatchError(storage.ErrPileNotFound))
	})
	It("should keep counters across reopen without re-seeding", func() {
		pile, err := store.Get(ctx, 1)
		Expect(err).ToNot(HaveOccurred())
		pile.CumulativeUsageTimes = 4
		pile.CumulativeChargedAmount = decimal.RequireFromString("20")
		Expect(store.Update(ctx, pile)).To(Succeed())
		Expect(store.Close()).To(Succeed())

		reopened, err := storage.OpenLevelDB(logr.Discard(), path, seed)
		Expect(err).ToNot(HaveOccurred())
		store = reopened

		pile, err = store.Get(ctx, 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(pile.CumulativeUsageTimes).To(Equal(4))
		Expect(pile.CumulativeChargedAmount.Equal(decimal.RequireFromString("20"))).To(BeTrue())
	})
	It("should index orders by user without prefix collisions", func() {
		now := time.Date(2024, time.May, 12, 8, 0, 0, 0, time.UTC)
		for i, user := range []string{"al", "alice", "alice"} {
			Expect(store.Save(ctx, &api.Order{
				ID:            GinkgoT().Name() + string(rune('a'+i)),
				Username:      user,
				PileID:        1,
				CreateTime:    now,
				ChargedAmount: decimal.RequireFromString("5"),
			})).To(Succeed())
		}

		orders, err := store.ByUser(ctx, "al")
		Expect(err).ToNot(HaveOccurred())
		Expect(orders).To(HaveLen(1))
		orders, err = store.ByUser(ctx, "alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(orders).To(HaveLen(2))
		orders, err = store.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(orders).To(HaveLen(3))
	})
	It("should round-trip order rows intact", func() {
		now := time.Date(2024, time.May, 12, 8, 0, 0, 0, time.UTC)
		saved := &api.Order{
			ID:             "order-1",
			Username:       "alice",
			PileID:         2,
			CreateTime:     now,
			BeginTime:      now,
			EndTime:        now.Add(10 * time.Minute),
			ChargedAmount:  decimal.RequireFromString("5.00"),
			ChargedSeconds: 600,
			ChargingCost:   decimal.RequireFromString("3.50"),
			ServiceCost:    decimal.RequireFromString("4.00"),
			TotalCost:      decimal.RequireFromString("7.50"),
		}
		Expect(store.Save(ctx, saved)).To(Succeed())

		orders, err := store.ByUser(ctx, "alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(orders).To(HaveLen(1))
		got := orders[0]
		Expect(got.EndTime.Equal(saved.EndTime)).To(BeTrue())
		Expect(got.ChargedSeconds).To(Equal(int64(600)))
		Expect(got.TotalCost.Equal(saved.TotalCost)).To(BeTrue())
	})
})
