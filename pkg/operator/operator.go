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

// Package operator wires the control plane together: configuration, stores,
// the accelerated clock, the scheduler and its completion watcher, and the
// metrics endpoint.
package operator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	baseclock "k8s.io/utils/clock"

	"github.com/chargectl/chargectl/pkg/billing"
	"github.com/chargectl/chargectl/pkg/clock"
	"github.com/chargectl/chargectl/pkg/config"
	"github.com/chargectl/chargectl/pkg/operator/options"
	"github.com/chargectl/chargectl/pkg/query"
	"github.com/chargectl/chargectl/pkg/scheduler"
	"github.com/chargectl/chargectl/pkg/storage"
)

// Operator holds the running components of one station.
type Operator struct {
	Options   *options.Options
	Logger    logr.Logger
	Clock     *clock.Accelerated
	Scheduler *scheduler.Scheduler
	Watcher   *scheduler.Watcher
	Queries   *query.Service

	closers []func() error
}

// NewLogger builds the production logger for the binary.
func NewLogger() logr.Logger {
	z, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("building logger: %v", err))
	}
	return zapr.NewLogger(z)
}

// New constructs the operator from parsed options.
func New(ctx context.Context, log logr.Logger, opts *options.Options) (*Operator, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	op := &Operator{Options: opts, Logger: log}

	var pileStore storage.PileStore
	var orderStore storage.OrderStore
	if opts.DBPath != "" {
		store, err := storage.OpenLevelDB(log.WithName("storage"), opts.DBPath, cfg.PileList())
		if err != nil {
			return nil, err
		}
		op.closers = append(op.closers, store.Close)
		pileStore, orderStore = store, store
	} else {
		pileStore = storage.NewMemoryPileStore(cfg.PileList())
		orderStore = storage.NewMemoryOrderStore()
	}

	op.Clock = clock.NewAccelerated(baseclock.RealClock{}, opts.ClockRate)
	biller := billing.NewBiller(log.WithName("billing"), cfg.TariffTable(), orderStore, pileStore)

	piles, err := pileStore.List(ctx)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(log.WithName("scheduler"), op.Clock, biller, piles, opts.SchedulerOptions())
	if err != nil {
		return nil, err
	}
	op.Scheduler = sched
	op.Watcher = scheduler.NewWatcher(log.WithName("watcher"), sched, baseclock.RealClock{}, opts.PollInterval)
	op.Queries = query.NewService(orderStore, pileStore)
	return op, nil
}

// Start runs the watcher and the metrics endpoint until the context is
// cancelled or one of them fails.
func (o *Operator) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return o.Watcher.Start(ctx)
	})
	group.Go(func() error {
		return o.serveMetrics(ctx)
	})
	err := group.Wait()
	for _, close := range o.closers {
		if cerr := close(); cerr != nil {
			o.Logger.Error(cerr, "closing store")
		}
	}
	return err
}

func (o *Operator) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", o.Options.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	o.Logger.Info("metrics endpoint listening", "port", o.Options.MetricsPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}
