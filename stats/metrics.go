package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	forwardedMessagesCounter prometheus.Counter
	failedMessagesCounter    prometheus.Counter
	sentBatchesCounter       prometheus.Counter
	retriesCounter           prometheus.Counter
	rotationsCounter         prometheus.Counter
)

func init() {
	opts := prometheus.CounterOpts{}
	opts.Name = "caddygelf_messages_total"
	opts.Help = "Numbers of GELF messages by final delivery status"
	messageVec := prometheus.NewCounterVec(opts, []string{"status"})
	prometheus.MustRegister(messageVec)

	forwardedMessagesCounter = messageVec.WithLabelValues("forwarded")
	failedMessagesCounter = messageVec.WithLabelValues("failed")

	sentBatchesCounter = newCounter("caddygelf_sent_batches_total", "Numbers of fully delivered batches")
	retriesCounter = newCounter("caddygelf_send_retries_total", "Numbers of batch delivery attempts beyond the first")
	rotationsCounter = newCounter("caddygelf_log_rotations_total", "Numbers of completed log file rotations")
}

func newCounter(name string, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{}
	opts.Name = name
	opts.Help = help
	counter := prometheus.NewCounter(opts)
	prometheus.MustRegister(counter)
	return counter
}
