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

package options

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/chargectl/chargectl/pkg/scheduler"
	"github.com/chargectl/chargectl/pkg/utils/env"
)

// Options for running this binary
type Options struct {
	*flag.FlagSet

	MetricsPort int

	ConfigFile string
	DBPath     string

	WaitingAreaCapacity int
	PileQueueCapacity   int
	MaxChargingIDs      int
	SlowPilePowerKW     float64
	FastPilePowerKW     float64
	RecoveryPolicy      string

	ClockRate    float64
	PollInterval time.Duration
}

// New creates an Options struct and registers CLI flags and environment variables to fill-in the Options struct fields
func New() *Options {
	opts := &Options{}
	f := flag.NewFlagSet("chargectl", flag.ContinueOnError)
	opts.FlagSet = f

	f.IntVar(&opts.MetricsPort, "metrics-port", env.WithDefaultInt("METRICS_PORT", 8080), "The port the metric endpoint binds to for operating metrics about the controller itself")
	f.StringVar(&opts.ConfigFile, "config-file", env.WithDefaultString("CONFIG_FILE", ""), "Path to the TOML station file declaring the pile inventory and tariff overrides. Empty uses the built-in default inventory")
	f.StringVar(&opts.DBPath, "db-path", env.WithDefaultString("DB_PATH", ""), "Directory of the station database. Empty keeps piles and orders in memory only")
	f.IntVar(&opts.WaitingAreaCapacity, "waiting-area-capacity", env.WithDefaultInt("WAITING_AREA_CAPACITY", 20), "Maximum requests admitted into the waiting area across both kinds")
	f.IntVar(&opts.PileQueueCapacity, "pile-queue-capacity", env.WithDefaultInt("PILE_QUEUE_CAPACITY", 5), "Maximum requests queued at a single pile, including the one being served")
	f.IntVar(&opts.MaxChargingIDs, "max-charging-ids", env.WithDefaultInt("MAX_CHARGING_IDS", 1000), "Size of the recyclable request id pool")
	f.Float64Var(&opts.SlowPilePowerKW, "slow-pile-power-kw", env.WithDefaultFloat64("SLOW_PILE_POWER_KW", 30), "Power rating of slow piles in kW")
	f.Float64Var(&opts.FastPilePowerKW, "fast-pile-power-kw", env.WithDefaultFloat64("FAST_PILE_POWER_KW", 60), "Power rating of fast piles in kW")
	f.StringVar(&opts.RecoveryPolicy, "recovery-policy", env.WithDefaultString("RECOVERY_POLICY", string(scheduler.PolicyTimeOrdered)), "How a braked pile's outstanding work is re-queued: time-ordered re-pools every pile of the kind by admission time, priority re-queues only the braked pile's own queue")
	f.Float64Var(&opts.ClockRate, "clock-rate", env.WithDefaultFloat64("CLOCK_RATE", 60), "Acceleration factor of the station clock relative to wall time")
	f.DurationVar(&opts.PollInterval, "poll-interval", env.WithDefaultDuration("POLL_INTERVAL", time.Second), "Real-time interval between completion sweeps")
	return opts
}

// MustParse reads the user passed flags, environment variables, and default values.
// Options are validated and panics if an error is returned
func (o *Options) MustParse() *Options {
	err := o.Parse(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		panic(err)
	}
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}

func (o Options) Validate() (err error) {
	if o.WaitingAreaCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("waiting-area-capacity must be positive, got %d", o.WaitingAreaCapacity))
	}
	if o.PileQueueCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("pile-queue-capacity must be positive, got %d", o.PileQueueCapacity))
	}
	if o.MaxChargingIDs <= 0 {
		err = multierr.Append(err, fmt.Errorf("max-charging-ids must be positive, got %d", o.MaxChargingIDs))
	}
	if o.SlowPilePowerKW <= 0 || o.FastPilePowerKW <= 0 {
		err = multierr.Append(err, fmt.Errorf("pile power ratings must be positive, got slow=%v fast=%v", o.SlowPilePowerKW, o.FastPilePowerKW))
	}
	policy := scheduler.Policy(o.RecoveryPolicy)
	if policy != scheduler.PolicyTimeOrdered && policy != scheduler.PolicyPriority {
		err = multierr.Append(err, fmt.Errorf("recovery-policy may only be either %s or %s", scheduler.PolicyTimeOrdered, scheduler.PolicyPriority))
	}
	if o.ClockRate < 1 {
		err = multierr.Append(err, fmt.Errorf("clock-rate must be at least 1, got %v", o.ClockRate))
	}
	if o.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll-interval must be positive, got %v", o.PollInterval))
	}
	return err
}

// GetRecoveryPolicy returns the validated recovery policy.
func (o Options) GetRecoveryPolicy() scheduler.Policy {
	return scheduler.Policy(o.RecoveryPolicy)
}

// SchedulerOptions maps the parsed flags onto the scheduler tunables.
func (o Options) SchedulerOptions() scheduler.Options {
	return scheduler.Options{
		WaitingAreaCapacity: o.WaitingAreaCapacity,
		PileQueueCapacity:   o.PileQueueCapacity,
		MaxIDs:              o.MaxChargingIDs,
		SlowPowerKW:         o.SlowPilePowerKW,
		FastPowerKW:         o.FastPilePowerKW,
		RecoveryPolicy:      o.GetRecoveryPolicy(),
	}
}
