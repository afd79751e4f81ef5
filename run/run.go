// Package run wires up and runs the actual forwarding agent
package run

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/relex/caddy-gelf-agent/batch"
	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/forward"
	"github.com/relex/caddy-gelf-agent/rotate"
	"github.com/relex/caddy-gelf-agent/stats"
	"github.com/relex/caddy-gelf-agent/tail"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
)

// Run runs the agent until stopped by signals
func Run(configFile string) {
	cref, confErr := LoadConfigFile(configFile)
	if confErr != nil {
		logger.Fatal(confErr)
	}

	recorder := stats.NewRecorder()
	stopRequest := channels.NewSignalAwaitable()

	client := forward.NewClient(logger.Root(), cref.Output, recorder, stopRequest)
	batcher := batch.NewBatcher(logger.Root(), cref.Batch, client)
	transformer := cref.Transform.NewTransformer(logger.Root())
	rotator, rotErr := rotate.NewRotator(logger.Root(), cref.Input.Path, cref.Rotation, recorder)
	if rotErr != nil {
		logger.Fatal(rotErr)
	}
	tailer := tail.NewTailer(logger.Root(), cref.Input, transformer, batcher, rotator, stopRequest)
	reporter := stats.NewReporter(logger.Root(), recorder, stopRequest)

	runLogger := logger.WithField(defs.LabelComponent, "Launcher")
	runLogger.Infof("forwarding %s -> %s", cref.Input.Path, cref.Output.Address())
	runLogger.Infof("batch size: %d, batch timeout: %s, max retries: %d, retry base delay: %s",
		cref.Batch.MaxRecords, cref.Batch.Timeout, cref.Output.MaxRetries, cref.Output.RetryBaseDelay)
	runLogger.Infof("log rotation: %s limit, every %s, keeping %d lines",
		cref.Rotation.SizeLimit, cref.Rotation.CheckInterval, cref.Rotation.KeepLines)

	tailer.Launch()
	reporter.Launch()

	// wait for shutdown signal
	{
		sigChan := make(chan os.Signal, 10)
		signal.Notify(sigChan, syscall.SIGINT)
		signal.Notify(sigChan, syscall.SIGTERM)
		s := <-sigChan
		runLogger.Infof("received %s, shutting down", s)
	}

	stopRequest.Signal()
	channels.AllAwaitables(tailer.Stopped(), reporter.Stopped()).WaitForever()

	// whatever is still buffered is lost here; unsent batches are not persisted
	if pending := batcher.Pending(); pending > 0 {
		runLogger.Warnf("discarding %d unsent messages", pending)
	}
	runLogger.Infof("final metrics - %s", recorder.Snapshot())
	runLogger.Info("clean exit")
}
