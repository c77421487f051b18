package task

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flanksource/commons/logger"
)

// HandleSignals installs interrupt handling for m. The first SIGINT or
// SIGTERM cancels every task and waits up to timeout for them to wind
// down; a second signal exits immediately. Intended for binaries, not for
// library embedding, so it is opt-in.
func HandleSignals(m *Manager, timeout time.Duration) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-ch
		logger.Infof("received %v, cancelling tasks (interrupt again to force exit)", sig)
		m.CancelAll("interrupted")

		done := make(chan struct{})
		go func() {
			_ = m.Stop()
			close(done)
		}()

		select {
		case <-done:
			os.Exit(130)
		case <-time.After(timeout):
			logger.Warnf("tasks did not stop within %v, forcing exit", timeout)
			os.Exit(130)
		case sig = <-ch:
			logger.Warnf("received %v again, forcing exit", sig)
			os.Exit(130)
		}
	}()
}
