// Copyright (c) 2013 Conformal Systems LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package interrupt allows to handle interrupts.
package interrupt

import (
	"os"
	"os/signal"
	"syscall"
)

// ShutdownChannel is used to signal that shutdown is in progress.
var ShutdownChannel = make(chan error)

// interruptChannel is used to receive SIGINT and SIGTERM signals.
var interruptChannel chan os.Signal

// addHandlerChannel is used to add an interrupt handler to the list of
// handlers to be invoked on SIGINT and SIGTERM signals.
var addHandlerChannel = make(chan func())

// mainInterruptHandler listens for signals on the interruptChannel and
// invokes the registered interrupt handlers accordingly. It also listens
// for handler registration. It must be run as a goroutine.
func mainInterruptHandler() {
	// interruptCallbacks is a list of callbacks to invoke when a
	// signal is received.
	var interruptCallbacks []func()

	for {
		select {
		case <-interruptChannel:
			for _, callback := range interruptCallbacks {
				callback()
			}

			// Signal the main goroutine to shutdown.
			ShutdownChannel <- nil

		case handler := <-addHandlerChannel:
			interruptCallbacks = append(interruptCallbacks, handler)
		}
	}
}

// AddInterruptHandler adds a handler to call when a SIGINT or SIGTERM is
// received.
func AddInterruptHandler(handler func()) {
	// Create the channel and start the main interrupt handler which
	// invokes all other callbacks and exits if not already done.
	if interruptChannel == nil {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)
		go mainInterruptHandler()
	}

	addHandlerChannel <- handler
}
