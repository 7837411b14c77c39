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

// Package billing computes stepped-tariff session costs and turns completed
// charging requests into persisted orders.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Band is one price level of the stepped tariff.
type Band int

const (
	// BandBottom is the valley price, [23,24) and [0,7).
	BandBottom Band = iota
	// BandMedium is the shoulder price, [7,10), [15,18) and [21,23).
	BandMedium
	// BandTop is the peak price, [10,15) and [18,21).
	BandTop
)

// BandForHour returns the tariff band containing the given hour of day.
// Bands are piecewise-constant and left-closed/right-open on hour
// boundaries.
func BandForHour(hour int) Band {
	switch {
	case hour >= 23 || hour < 7:
		return BandBottom
	case (hour >= 7 && hour < 10) || (hour >= 15 && hour < 18) || (hour >= 21 && hour < 23):
		return BandMedium
	default:
		return BandTop
	}
}

// Tariff carries the per-kWh prices of the three bands plus the flat
// service surcharge applied to every kWh regardless of band.
type Tariff struct {
	ServicePerKWh decimal.Decimal
	TopPerKWh     decimal.Decimal
	MediumPerKWh  decimal.Decimal
	BottomPerKWh  decimal.Decimal
}

// DefaultTariff returns the station's default price table.
func DefaultTariff() Tariff {
	return Tariff{
		ServicePerKWh: decimal.RequireFromString("0.80"),
		TopPerKWh:     decimal.RequireFromString("1.00"),
		MediumPerKWh:  decimal.RequireFromString("0.70"),
		BottomPerKWh:  decimal.RequireFromString("0.40"),
	}
}

// Price returns the per-kWh charging price of a band.
func (t Tariff) Price(band Band) decimal.Decimal {
	switch band {
	case BandTop:
		return t.TopPerKWh
	case BandMedium:
		return t.MediumPerKWh
	default:
		return t.BottomPerKWh
	}
}

// CalcCost computes the cost of delivering amount kWh over [begin, end].
// The interval is partitioned into per-band time totals by walking the hour
// boundaries (across day rollovers), the energy is apportioned to bands in
// proportion to time spent in each, and every returned figure is rounded to
// two decimal places with total = charging + service holding exactly.
func (t Tariff) CalcCost(begin, end time.Time, amount decimal.Decimal) (total, charging, service decimal.Decimal) {
	bandSeconds := t.partition(begin, end)
	totalSeconds := bandSeconds[BandTop].Add(bandSeconds[BandMedium]).Add(bandSeconds[BandBottom])

	if totalSeconds.IsZero() {
		// Degenerate zero-length interval: the whole amount is priced at
		// the band containing the begin instant.
		charging = amount.Mul(t.Price(BandForHour(begin.Hour()))).Round(2)
	} else {
		charging = decimal.Zero
		for _, band := range []Band{BandTop, BandMedium, BandBottom} {
			energy := amount.Mul(bandSeconds[band]).Div(totalSeconds)
			charging = charging.Add(energy.Mul(t.Price(band)))
		}
		charging = charging.Round(2)
	}
	service = amount.Mul(t.ServicePerKWh).Round(2)
	total = charging.Add(service)
	return total, charging, service
}

// partition walks [begin, end] hour by hour and accumulates the seconds
// spent inside each band.
func (t Tariff) partition(begin, end time.Time) map[Band]decimal.Decimal {
	out := map[Band]decimal.Decimal{
		BandTop:    decimal.Zero,
		BandMedium: decimal.Zero,
		BandBottom: decimal.Zero,
	}
	for cur := begin; cur.Before(end); {
		next := time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), 0, 0, 0, cur.Location()).Add(time.Hour)
		if next.After(end) {
			next = end
		}
		band := BandForHour(cur.Hour())
		out[band] = out[band].Add(decimal.NewFromFloat(next.Sub(cur).Seconds()))
		cur = next
	}
	return out
}
