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

// Package storage defines the persistence ports the control plane calls out
// through, plus the in-memory and goleveldb-backed implementations. The
// scheduler never persists in-flight request state; only pile counters and
// settled orders cross this boundary.
package storage

import (
	"context"
	"errors"

	"github.com/chargectl/chargectl/pkg/api"
)

// ErrPileNotFound is returned when a pile id has no row in the store.
var ErrPileNotFound = errors.New("pile not found")

// PileStore enumerates and updates the configured charging piles.
type PileStore interface {
	// List returns all configured piles ordered by id.
	List(ctx context.Context) ([]*api.Pile, error)
	// Get returns the pile with the given id or ErrPileNotFound.
	Get(ctx context.Context, pileID uint32) (*api.Pile, error)
	// Update overwrites the stored row for the pile.
	Update(ctx context.Context, pile *api.Pile) error
}

// OrderStore persists settled orders.
type OrderStore interface {
	// Save persists one settled order. Order ids are unique, so Save never
	// overwrites an existing row in practice.
	Save(ctx context.Context, order *api.Order) error
	// ByUser returns the orders settled for one user.
	ByUser(ctx context.Context, username string) ([]*api.Order, error)
	// All returns every settled order.
	All(ctx context.Context) ([]*api.Order, error)
}
