package defs

import (
	"time"
)

var (
	// InputPollInterval defines how long the tailer sleeps when no complete line is available
	//
	// The value affects the delay of logs as well as how promptly idle flush and rotation checks run
	InputPollInterval = 100 * time.Millisecond

	// InputFileWaitInterval defines how often to check for the log file to appear before tailing starts
	InputFileWaitInterval = 1 * time.Second

	// InputLineBufferSize defines the initial buffer size in bytes to read one access log line
	InputLineBufferSize = 64 * 1024

	// ForwarderSendTimeout bounds one connect + send + close cycle for a single GELF message
	//
	// Any timeout counts as a failed delivery attempt of the whole batch
	ForwarderSendTimeout = 10 * time.Second

	// MetricsReportInterval defines how often the reporter logs a metrics summary line
	MetricsReportInterval = 60 * time.Second
)

// EnableTestMode turns on test mode with very short poll intervals and timeouts
func EnableTestMode() {
	InputPollInterval = 10 * time.Millisecond
	InputFileWaitInterval = 20 * time.Millisecond
	ForwarderSendTimeout = 1 * time.Second
	MetricsReportInterval = 1 * time.Second
}
