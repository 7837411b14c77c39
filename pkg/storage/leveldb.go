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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/chargectl/chargectl/pkg/api"
)

const (
	pileKeyPrefix  = "pile/"
	orderKeyPrefix = "order/"
)

// LevelDBStore persists piles and orders in a goleveldb database. Rows are
// JSON values under "pile/<id>" and "order/<user>/<order-id>" keys; the
// user-scoped order keys double as the per-user index.
type LevelDBStore struct {
	db  *leveldb.DB
	log logr.Logger
}

// OpenLevelDB opens (or creates) the database at path and seeds any pile
// rows that are not present yet. Seeding is idempotent: counters of piles
// already on disk are left untouched.
func OpenLevelDB(log logr.Logger, path string, seed []*api.Pile) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening station database at %q: %w", path, err)
	}
	s := &LevelDBStore{db: db, log: log}
	for _, pile := range seed {
		has, err := db.Has(pileKey(pile.ID), nil)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("reading pile %d: %w", pile.ID, err)
		}
		if has {
			continue
		}
		if err := s.putJSON(pileKey(pile.ID), pile); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.V(1).Info("seeded pile", "pile", pile.ID, "kind", pile.Kind)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) List(_ context.Context) ([]*api.Pile, error) {
	var piles []*api.Pile
	iter := s.db.NewIterator(util.BytesPrefix([]byte(pileKeyPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		pile := &api.Pile{}
		if err := json.Unmarshal(iter.Value(), pile); err != nil {
			return nil, fmt.Errorf("decoding pile row %q: %w", iter.Key(), err)
		}
		piles = append(piles, pile)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("listing piles: %w", err)
	}
	sort.Slice(piles, func(i, j int) bool { return piles[i].ID < piles[j].ID })
	return piles, nil
}

func (s *LevelDBStore) Get(_ context.Context, pileID uint32) (*api.Pile, error) {
	raw, err := s.db.Get(pileKey(pileID), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrPileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading pile %d: %w", pileID, err)
	}
	pile := &api.Pile{}
	if err := json.Unmarshal(raw, pile); err != nil {
		return nil, fmt.Errorf("decoding pile %d: %w", pileID, err)
	}
	return pile, nil
}

func (s *LevelDBStore) Update(_ context.Context, pile *api.Pile) error {
	has, err := s.db.Has(pileKey(pile.ID), nil)
	if err != nil {
		return fmt.Errorf("reading pile %d: %w", pile.ID, err)
	}
	if !has {
		return ErrPileNotFound
	}
	return s.putJSON(pileKey(pile.ID), pile)
}

func (s *LevelDBStore) Save(_ context.Context, order *api.Order) error {
	return s.putJSON(orderKey(order.Username, order.ID), order)
}

func (s *LevelDBStore) ByUser(_ context.Context, username string) ([]*api.Order, error) {
	return s.scanOrders(orderKeyPrefix + username + "/")
}

func (s *LevelDBStore) All(_ context.Context) ([]*api.Order, error) {
	return s.scanOrders(orderKeyPrefix)
}

func (s *LevelDBStore) scanOrders(prefix string) ([]*api.Order, error) {
	var orders []*api.Order
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		order := &api.Order{}
		if err := json.Unmarshal(iter.Value(), order); err != nil {
			return nil, fmt.Errorf("decoding order row %q: %w", iter.Key(), err)
		}
		orders = append(orders, order)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	return orders, nil
}

func (s *LevelDBStore) putJSON(key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding row %q: %w", key, err)
	}
	if err := s.db.Put(key, raw, nil); err != nil {
		return fmt.Errorf("writing row %q: %w", key, err)
	}
	return nil
}

func pileKey(id uint32) []byte {
	return []byte(fmt.Sprintf("%s%010d", pileKeyPrefix, id))
}

func orderKey(username, orderID string) []byte {
	return []byte(orderKeyPrefix + username + "/" + orderID)
}
