package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CreateGracefulShutdownChannel returns a channel that receives SIGTERM and
// SIGINT.
func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGTERM, syscall.SIGINT)
	return gracefulShutdown
}

// ListenForShutdown blocks until a shutdown signal arrives, runs the handler
// and then waits out the grace period before returning.
func ListenForShutdown(
	gracefulShutdown chan os.Signal,
	done chan bool,
	handler func(),
	timeToWait time.Duration,
	l *zap.Logger,
) {
	<-gracefulShutdown
	l.Sugar().Info("Received shutdown signal")

	handler()

	time.AfterFunc(timeToWait, func() {
		done <- true
	})
	<-done
	l.Sugar().Info("Shutdown complete")
}
