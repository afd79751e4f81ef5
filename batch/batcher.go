// Package batch accumulates GELF envelopes and decides when to hand them to
// the forwarding client
package batch

import (
	"fmt"
	"time"

	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/gelf"
	"github.com/relex/gotils/logger"
)

// Sender delivers a completed batch, returning overall success after internal retries
type Sender interface {
	SendBatch(envelopes []*gelf.Envelope) bool
}

// Config defines the batch section in config file
type Config struct {
	MaxRecords int           `yaml:"maxRecords"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Batcher collects envelopes in arrival order and flushes on size or age
//
// Batcher is not safe for concurrent use; all calls happen on the tailing loop.
// A flushed batch is always cleared whether or not the Sender succeeded: retry
// beyond the Sender's own attempts is deliberately out of scope.
type Batcher struct {
	logger     logger.Logger
	sender     Sender
	maxRecords int
	timeout    time.Duration
	pending    []*gelf.Envelope
	lastFlush  time.Time
}

// VerifyConfig verifies the batch section
func (cfg *Config) VerifyConfig() error {
	if cfg.MaxRecords <= 0 {
		return fmt.Errorf(".maxRecords must be positive, not %d", cfg.MaxRecords)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf(".timeout must be positive, not %s", cfg.Timeout)
	}
	return nil
}

// NewBatcher creates a Batcher delivering to the given Sender
func NewBatcher(parentLogger logger.Logger, config Config, sender Sender) *Batcher {
	return &Batcher{
		logger:     parentLogger.WithField(defs.LabelComponent, "Batcher"),
		sender:     sender,
		maxRecords: config.MaxRecords,
		timeout:    config.Timeout,
		pending:    make([]*gelf.Envelope, 0, config.MaxRecords),
		lastFlush:  time.Now(),
	}
}

// Add appends one envelope and flushes if a trigger condition is met
func (batcher *Batcher) Add(envelope *gelf.Envelope) {
	batcher.pending = append(batcher.pending, envelope)
	batcher.checkTriggers()
}

// CheckIdle flushes an aged batch when no new envelopes are arriving; a no-op on an empty batch
func (batcher *Batcher) CheckIdle() {
	batcher.checkTriggers()
}

// Pending returns the number of envelopes waiting in the current batch
func (batcher *Batcher) Pending() int {
	return len(batcher.pending)
}

func (batcher *Batcher) checkTriggers() {
	switch {
	case len(batcher.pending) >= batcher.maxRecords:
		batcher.flush("full")
	case len(batcher.pending) > 0 && time.Since(batcher.lastFlush) >= batcher.timeout:
		batcher.flush("timeout")
	}
}

func (batcher *Batcher) flush(reason string) {
	batcher.logger.Infof("sending batch of %d messages (%s)", len(batcher.pending), reason)
	if batcher.sender.SendBatch(batcher.pending) {
		batcher.logger.Infof("successfully sent batch of %d messages", len(batcher.pending))
	} else {
		batcher.logger.Warnf("failed to send batch of %d messages", len(batcher.pending))
	}
	batcher.pending = batcher.pending[:0]
	batcher.lastFlush = time.Now()
}
