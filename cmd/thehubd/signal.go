package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/floweethehub/thehub-sub000/log"
)

var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener returns a channel closed on the first SIGINT or
// SIGTERM. Later signals are only logged.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	closeOnce := sync.Once{}
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		for sig := range interruptChannel {
			log.Info("Received signal (%s). shutting down...", sig)
			closeOnce.Do(func() {
				close(c)
			})
		}
	}()

	return c
}
