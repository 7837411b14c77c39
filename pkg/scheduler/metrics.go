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

package scheduler

import "github.com/prometheus/client_golang/prometheus"

const (
	endedCompleted         = "completed"
	endedCancelled         = "cancelled"
	endedCancelledCharging = "cancelled_charging"
)

var (
	requestsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chargectl",
		Subsystem: "scheduler",
		Name:      "requests_submitted_total",
		Help:      "Charging requests admitted into the waiting area.",
	}, []string{"kind"})
	requestsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chargectl",
		Subsystem: "scheduler",
		Name:      "requests_ended_total",
		Help:      "Charging requests removed, by outcome.",
	}, []string{"outcome"})
	waitingAreaSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chargectl",
		Subsystem: "scheduler",
		Name:      "waiting_area_size",
		Help:      "Live requests in the waiting area, by kind.",
	}, []string{"kind"})
	recoveryQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chargectl",
		Subsystem: "scheduler",
		Name:      "recovery_queue_depth",
		Help:      "Requests awaiting re-dispatch after a pile fault or recovery.",
	})
	pileQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chargectl",
		Subsystem: "scheduler",
		Name:      "pile_queue_depth",
		Help:      "Requests queued at each pile, including the executing head.",
	}, []string{"pile"})
)

func init() {
	prometheus.MustRegister(requestsSubmitted, requestsEnded, waitingAreaSize, recoveryQueueDepth, pileQueueDepth)
}
