package stats

import (
	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
)

// Reporter periodically logs a human-readable summary of the Recorder counters
//
// It only reads the Recorder and never blocks the tailing loop.
type Reporter struct {
	logger      logger.Logger
	recorder    *Recorder
	stopRequest channels.Awaitable
	stopped     *channels.SignalAwaitable
}

// NewReporter creates a Reporter; Launch must be called to start it
func NewReporter(parentLogger logger.Logger, recorder *Recorder, stopRequest channels.Awaitable) *Reporter {
	return &Reporter{
		logger:      parentLogger.WithField(defs.LabelComponent, "MetricsReporter"),
		recorder:    recorder,
		stopRequest: stopRequest,
		stopped:     channels.NewSignalAwaitable(),
	}
}

// Launch starts the reporting loop in background
func (reporter *Reporter) Launch() {
	go reporter.run()
}

// Stopped returns an Awaitable signaled when the reporting loop has ended
func (reporter *Reporter) Stopped() channels.Awaitable {
	return reporter.stopped
}

func (reporter *Reporter) run() {
	defer reporter.stopped.Signal()
	for {
		if reporter.stopRequest.Wait(defs.MetricsReportInterval) {
			reporter.logger.Info("stop requested")
			return
		}
		reporter.logger.Infof("metrics - %s", reporter.recorder.Snapshot())
	}
}
