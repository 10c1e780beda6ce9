package main

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandlers wires the reload and terminate signals. Handlers
// do nothing but set an atomic flag and return; all state transitions
// happen later in the main loop, so every decision stays serialized.
// SIGCHLD/SIGTSTP/SIGTTIN/SIGTTOU are explicitly ignored.
func installSignalHandlers() {
	ignored := make(chan os.Signal, 1)
	signal.Notify(ignored, syscall.SIGCHLD, syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)
	go func() {
		for range ignored {
			// intentionally discarded
		}
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGUSR1)
	go func() {
		for range reload {
			reloadFlag.Store(true)
		}
	}()

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for range term {
			terminateFlag.Store(true)
		}
	}()
}
