// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/search-ops/internal/logger"
)

// Context returns a context cancelled on SIGINT or SIGTERM. The returned stop
// function releases the signal registration.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			logger.Info("Signal caught!")
			cancel()
		case <-ctx.Done():
		}
	}()

	stop := func() {
		signal.Stop(ch)
		cancel()
	}
	return ctx, stop
}
