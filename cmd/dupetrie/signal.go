package main

import (
	"os"
	"os/signal"
	"syscall"

	dupetrie "github.com/mattkeenan/dupetrie/pkg"
)

// setupSignalHandler sets up signal handling for graceful shutdown
// Returns a channel that will be closed when a shutdown signal is received
func setupSignalHandler() <-chan struct{} {
	shutdown := make(chan struct{})

	// SIGINT (Ctrl+C) and SIGTERM (termination)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		dupetrie.Warnf("received signal %v, stopping scan", sig)

		// Close the shutdown channel to notify all listeners
		close(shutdown)

		// A second signal means the user does not want to wait
		sig = <-sigChan
		dupetrie.Warnf("received signal %v again, exiting", sig)
		os.Exit(130)
	}()

	return shutdown
}
