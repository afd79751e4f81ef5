// Package tail follows the access log file and drives the whole pipeline:
// parse, transform, batch, plus idle flush and rotation checks, all
// interleaved on one loop
package tail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relex/caddy-gelf-agent/batch"
	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/gelf"
	"github.com/relex/caddy-gelf-agent/rotate"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
)

// Config defines the input section in config file
type Config struct {
	Path string `yaml:"path"`
}

// Tailer owns the read cursor into the log file
//
// It starts in an awaiting-file state until the path exists, then tails from
// end-of-file; pre-existing lines are never replayed. The batcher and rotator
// are invoked inline between reads, never concurrently with them. A slow
// downstream send stalls tailing until the per-message timeout elapses; this
// is accepted.
type Tailer struct {
	logger      logger.Logger
	path        string
	transformer *gelf.Transformer
	batcher     *batch.Batcher
	rotator     *rotate.Rotator
	stopRequest channels.Awaitable
	stopped     *channels.SignalAwaitable
}

// VerifyConfig verifies the input section
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Path) == 0 {
		return fmt.Errorf(".path is unspecified")
	}
	return nil
}

// NewTailer creates a Tailer; Launch must be called to start it
func NewTailer(parentLogger logger.Logger, config Config, transformer *gelf.Transformer,
	batcher *batch.Batcher, rotator *rotate.Rotator, stopRequest channels.Awaitable) *Tailer {
	return &Tailer{
		logger: parentLogger.WithFields(logger.Fields{
			defs.LabelComponent: "Tailer",
			defs.LabelPath:      config.Path,
		}),
		path:        config.Path,
		transformer: transformer,
		batcher:     batcher,
		rotator:     rotator,
		stopRequest: stopRequest,
		stopped:     channels.NewSignalAwaitable(),
	}
}

// Launch starts the tailing loop in background
func (tailer *Tailer) Launch() {
	go tailer.run()
}

// Stopped returns an Awaitable signaled when the tailing loop has ended
func (tailer *Tailer) Stopped() channels.Awaitable {
	return tailer.stopped
}

func (tailer *Tailer) run() {
	defer tailer.stopped.Signal()
	for {
		if !tailer.awaitFile() {
			tailer.logger.Info("stop requested (awaiting file)")
			return
		}
		file, err := os.Open(tailer.path)
		if err != nil {
			// the file may have vanished between the existence check and the open
			tailer.logger.Warnf("failed to open log file: %s", err.Error())
			continue
		}
		tailer.tailFile(file)
		file.Close()
		if tailer.stopRequest.Peek() {
			tailer.logger.Info("stop requested (tailing)")
			return
		}
	}
}

// awaitFile polls until the log file exists; returns false on stop request
func (tailer *Tailer) awaitFile() bool {
	for {
		if _, err := os.Stat(tailer.path); err == nil {
			return true
		}
		tailer.logger.Infof("waiting for log file: %s", tailer.path)
		if tailer.stopRequest.Wait(defs.InputFileWaitInterval) {
			return false
		}
	}
}

// tailFile reads from end-of-file until a stop request
func (tailer *Tailer) tailFile(file *os.File) {
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		tailer.logger.Errorf("failed to seek to end: %s", err.Error())
		return
	}
	tailer.logger.Info("tailing from end of file")

	reader := bufio.NewReaderSize(file, defs.InputLineBufferSize)
	partial := make([]byte, 0, defs.InputLineBufferSize)
	lastRotationCheck := time.Now()

	for {
		chunk, rerr := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			partial = append(partial, chunk...)
		}
		if rerr == nil {
			// a complete line has accumulated
			tailer.processLine(partial)
			partial = partial[:0]
			continue
		}
		if !errors.Is(rerr, io.EOF) {
			tailer.logger.Warnf("read error: %s", rerr.Error())
		}

		// temporary end-of-file: run idle checks before the next poll
		tailer.batcher.CheckIdle()
		if time.Since(lastRotationCheck) >= tailer.rotator.CheckInterval() {
			tailer.rotator.MaybeRotate()
			lastRotationCheck = time.Now()
		}
		if tailer.stopRequest.Wait(defs.InputPollInterval) {
			return
		}
	}
}

func (tailer *Tailer) processLine(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	record, err := gelf.ParseRecord(trimmed)
	if err != nil {
		invalidLinesCounter.Inc()
		tailer.logger.Warnf("invalid JSON in log line: %s", err.Error())
		return
	}
	if envelope := tailer.transformer.Transform(record); envelope != nil {
		tailer.batcher.Add(envelope)
	}
}
