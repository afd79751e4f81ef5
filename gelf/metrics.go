package gelf

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	skippedInternalCounter prometheus.Counter
	skippedExcludedCounter prometheus.Counter
)

func init() {
	opts := prometheus.CounterOpts{}
	opts.Name = "caddygelf_skipped_records_total"
	opts.Help = "Numbers of access log records dropped before batching"
	vec := prometheus.NewCounterVec(opts, []string{"reason"})
	prometheus.MustRegister(vec)

	skippedInternalCounter = vec.WithLabelValues("internal")
	skippedExcludedCounter = vec.WithLabelValues("excluded")
}
