package tail

import (
	"github.com/prometheus/client_golang/prometheus"
)

var invalidLinesCounter prometheus.Counter

func init() {
	opts := prometheus.CounterOpts{}
	opts.Name = "caddygelf_invalid_lines_total"
	opts.Help = "Numbers of log lines discarded due to JSON parse failure"
	invalidLinesCounter = prometheus.NewCounter(opts)
	prometheus.MustRegister(invalidLinesCounter)
}
