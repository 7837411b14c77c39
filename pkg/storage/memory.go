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

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/chargectl/chargectl/pkg/api"
)

// MemoryPileStore keeps the pile inventory in process memory. Used by tests
// and by stations running without a database path configured.
type MemoryPileStore struct {
	mu    sync.RWMutex
	piles map[uint32]api.Pile
}

// NewMemoryPileStore seeds a store with the given piles.
func NewMemoryPileStore(piles []*api.Pile) *MemoryPileStore {
	s := &MemoryPileStore{piles: map[uint32]api.Pile{}}
	for _, p := range piles {
		s.piles[p.ID] = *p
	}
	return s
}

func (s *MemoryPileStore) List(_ context.Context) ([]*api.Pile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.MapToSlice(s.piles, func(_ uint32, p api.Pile) *api.Pile {
		return lo.ToPtr(p)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryPileStore) Get(_ context.Context, pileID uint32) (*api.Pile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.piles[pileID]
	if !ok {
		return nil, ErrPileNotFound
	}
	return lo.ToPtr(p), nil
}

func (s *MemoryPileStore) Update(_ context.Context, pile *api.Pile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.piles[pile.ID]; !ok {
		return ErrPileNotFound
	}
	s.piles[pile.ID] = *pile
	return nil
}

// MemoryOrderStore keeps settled orders in process memory.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders []api.Order
}

// NewMemoryOrderStore returns an empty order store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{}
}

func (s *MemoryOrderStore) Save(_ context.Context, order *api.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, *order)
	return nil
}

func (s *MemoryOrderStore) ByUser(_ context.Context, username string) ([]*api.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.FilterMap(s.orders, func(o api.Order, _ int) (*api.Order, bool) {
		return lo.ToPtr(o), o.Username == username
	}), nil
}

func (s *MemoryOrderStore) All(_ context.Context) ([]*api.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.orders, func(o api.Order, _ int) *api.Order {
		return lo.ToPtr(o)
	}), nil
}
