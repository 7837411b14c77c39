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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chargectl/chargectl/pkg/operator"
	"github.com/chargectl/chargectl/pkg/operator/options"
)

func main() {
	opts := options.New().MustParse()
	log := operator.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	op, err := operator.New(ctx, log, opts)
	if err != nil {
		log.Error(err, "initializing station")
		os.Exit(1)
	}
	if err := op.Start(ctx); err != nil {
		log.Error(err, "station exited")
		os.Exit(1)
	}
}
