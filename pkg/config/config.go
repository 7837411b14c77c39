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

// Package config loads the station file: the pile inventory and optional
// tariff price overrides, in TOML.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/chargectl/chargectl/pkg/api"
	"github.com/chargectl/chargectl/pkg/billing"
)

// Config is the parsed station file.
type Config struct {
	Piles  []PileConfig  `toml:"piles"`
	Tariff *TariffConfig `toml:"tariff"`
}

// PileConfig declares one charging pile. Status defaults to running.
type PileConfig struct {
	ID     uint32 `toml:"id"`
	Kind   string `toml:"kind"`
	Status string `toml:"status"`
}

// TariffConfig overrides the default price table. Prices are decimal
// strings to keep them exact.
type TariffConfig struct {
	ServicePerKWh string `toml:"service_per_kwh"`
	TopPerKWh     string `toml:"top_per_kwh"`
	MediumPerKWh  string `toml:"medium_per_kwh"`
	BottomPerKWh  string `toml:"bottom_per_kwh"`
}

// Default returns the inventory used when no station file is supplied:
// three slow piles and two fast ones.
func Default() *Config {
	return &Config{
		Piles: []PileConfig{
			{ID: 1, Kind: string(api.PileKindSlow)},
			{ID: 2, Kind: string(api.PileKindSlow)},
			{ID: 3, Kind: string(api.PileKindSlow)},
			{ID: 4, Kind: string(api.PileKindFast)},
			{ID: 5, Kind: string(api.PileKindFast)},
		},
	}
}

// Load reads and validates the station file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station file %q: %w", path, err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing station file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid station file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks pile ids, kinds, statuses and tariff prices.
func (c *Config) Validate() (err error) {
	if len(c.Piles) == 0 {
		err = multierr.Append(err, fmt.Errorf("at least one pile must be configured"))
	}
	seen := map[uint32]struct{}{}
	for _, p := range c.Piles {
		if _, dup := seen[p.ID]; dup {
			err = multierr.Append(err, fmt.Errorf("duplicate pile id %d", p.ID))
		}
		seen[p.ID] = struct{}{}
		if !lo.Contains([]string{string(api.PileKindSlow), string(api.PileKindFast)}, p.Kind) {
			err = multierr.Append(err, fmt.Errorf("pile %d: kind must be %q or %q, got %q", p.ID, api.PileKindSlow, api.PileKindFast, p.Kind))
		}
		if p.Status != "" && !lo.Contains([]string{
			string(api.PileStatusRunning),
			string(api.PileStatusShutdown),
			string(api.PileStatusUnavailable),
		}, p.Status) {
			err = multierr.Append(err, fmt.Errorf("pile %d: unknown status %q", p.ID, p.Status))
		}
	}
	if c.Tariff != nil {
		for field, price := range map[string]string{
			"service_per_kwh": c.Tariff.ServicePerKWh,
			"top_per_kwh":     c.Tariff.TopPerKWh,
			"medium_per_kwh":  c.Tariff.MediumPerKWh,
			"bottom_per_kwh":  c.Tariff.BottomPerKWh,
		} {
			if price == "" {
				continue
			}
			d, perr := decimal.NewFromString(price)
			if perr != nil {
				err = multierr.Append(err, fmt.Errorf("tariff %s: %w", field, perr))
				continue
			}
			if d.IsNegative() {
				err = multierr.Append(err, fmt.Errorf("tariff %s must not be negative, got %s", field, price))
			}
		}
	}
	return err
}

// PileList materializes the configured piles with zeroed counters.
func (c *Config) PileList() []*api.Pile {
	return lo.Map(c.Piles, func(p PileConfig, _ int) *api.Pile {
		status := api.PileStatus(p.Status)
		if p.Status == "" {
			status = api.PileStatusRunning
		}
		return &api.Pile{
			ID:                      p.ID,
			Kind:                    api.PileKind(p.Kind),
			Status:                  status,
			CumulativeChargedAmount: decimal.Zero,
		}
	})
}

// TariffTable returns the default tariff with any configured overrides
// applied. Validate must have passed before calling.
func (c *Config) TariffTable() billing.Tariff {
	tariff := billing.DefaultTariff()
	if c.Tariff == nil {
		return tariff
	}
	if c.Tariff.ServicePerKWh != "" {
		tariff.ServicePerKWh = decimal.RequireFromString(c.Tariff.ServicePerKWh)
	}
	if c.Tariff.TopPerKWh != "" {
		tariff.TopPerKWh = decimal.RequireFromString(c.Tariff.TopPerKWh)
	}
	if c.Tariff.MediumPerKWh != "" {
		tariff.MediumPerKWh = decimal.RequireFromString(c.Tariff.MediumPerKWh)
	}
	if c.Tariff.BottomPerKWh != "" {
		tariff.BottomPerKWh = decimal.RequireFromString(c.Tariff.BottomPerKWh)
	}
	return tariff
}
