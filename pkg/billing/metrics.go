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

package billing

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chargectl",
		Subsystem: "billing",
		Name:      "orders_created_total",
		Help:      "Total number of settled orders.",
	})
	chargedKWh = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chargectl",
		Subsystem: "billing",
		Name:      "charged_kwh_total",
		Help:      "Total energy billed across all orders, in kWh.",
	})
	revenue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chargectl",
		Subsystem: "billing",
		Name:      "revenue_total",
		Help:      "Total revenue across all orders (charging plus service).",
	})
)

func init() {
	prometheus.MustRegister(ordersCreated, chargedKWh, revenue)
}
