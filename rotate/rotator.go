// Package rotate bounds the size of the tailed log file by truncating it to
// its most recent lines
package rotate

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/stats"
	"github.com/relex/caddy-gelf-agent/util"
	"github.com/relex/gotils/logger"
)

// Config defines the rotation section in config file
type Config struct {
	SizeLimit     datasize.ByteSize `yaml:"sizeLimit"`
	CheckInterval time.Duration     `yaml:"checkInterval"`
	KeepLines     int               `yaml:"keepLines"`
	ArchiveDir    string            `yaml:"archiveDir"`
}

// Rotator rewrites an oversized log file in place, keeping only the last KeepLines lines
//
// The rewrite opens the existing file with O_TRUNC so the inode stays the same
// and the tailer's open handle remains valid. The tailer's read offset is NOT
// recalculated against the new length: lines appended around a rotation may be
// skipped or re-read. Rotation failures are logged and skipped, never fatal.
type Rotator struct {
	logger     logger.Logger
	path       string
	sizeLimit  int64
	interval   time.Duration
	keepLines  int
	archiveDir *os.File // nil when archiving is disabled
	metrics    *stats.Recorder
}

// VerifyConfig verifies the rotation section
func (cfg *Config) VerifyConfig() error {
	if cfg.SizeLimit == 0 {
		return fmt.Errorf(".sizeLimit is unspecified")
	}
	if cfg.CheckInterval <= 0 {
		return fmt.Errorf(".checkInterval must be positive, not %s", cfg.CheckInterval)
	}
	if cfg.KeepLines <= 0 {
		return fmt.Errorf(".keepLines must be positive, not %d", cfg.KeepLines)
	}
	return nil
}

// NewRotator creates a Rotator for the given log file path
//
// The archive directory, if configured, is opened once here and kept for
// openat-based writes of compressed rotation remainders.
func NewRotator(parentLogger logger.Logger, path string, config Config, metrics *stats.Recorder) (*Rotator, error) {
	var archiveDir *os.File
	if len(config.ArchiveDir) > 0 {
		dir, err := os.Open(config.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive dir: %w", err)
		}
		archiveDir = dir
	}
	return &Rotator{
		logger: parentLogger.WithFields(logger.Fields{
			defs.LabelComponent: "Rotator",
			defs.LabelPath:      path,
		}),
		path:       path,
		sizeLimit:  int64(config.SizeLimit.Bytes()),
		interval:   config.CheckInterval,
		keepLines:  config.KeepLines,
		archiveDir: archiveDir,
		metrics:    metrics,
	}, nil
}

// CheckInterval returns how often MaybeRotate should be invoked
func (rotator *Rotator) CheckInterval() time.Duration {
	return rotator.interval
}

// MaybeRotate truncates the log file to the retained tail if it exceeds the size limit
//
// Returns whether a rotation took place.
func (rotator *Rotator) MaybeRotate() bool {
	fileStat, serr := os.Stat(rotator.path)
	if serr != nil {
		if !os.IsNotExist(serr) {
			rotator.logger.Warnf("failed to stat log file: %s", serr.Error())
		}
		return false
	}
	if fileStat.Size() <= rotator.sizeLimit {
		return false
	}
	rotator.logger.Infof("log file size (%d bytes) exceeds limit (%d bytes), rotating", fileStat.Size(), rotator.sizeLimit)

	content, rerr := os.ReadFile(rotator.path)
	if rerr != nil {
		rotator.logger.Warnf("failed to read log file: %s", rerr.Error())
		return false
	}
	remainder, retained := splitTail(content, rotator.keepLines)

	if rotator.archiveDir != nil && len(remainder) > 0 {
		if err := rotator.archive(remainder); err != nil {
			// plain truncation still bounds disk usage
			rotator.logger.Warnf("failed to archive %d trimmed bytes: %s", len(remainder), err.Error())
		}
	}

	if err := os.WriteFile(rotator.path, retained, 0o644); err != nil {
		rotator.logger.Warnf("failed to rewrite log file: %s", err.Error())
		return false
	}
	rotator.metrics.OnRotation()
	rotator.logger.Infof("log file rotated, kept %d bytes", len(retained))
	return true
}

func (rotator *Rotator) archive(remainder []byte) error {
	compressed := &bytes.Buffer{}
	compressor := gzip.NewWriter(compressed)
	if _, err := compressor.Write(remainder); err != nil {
		return err
	}
	if err := compressor.Close(); err != nil {
		return err
	}
	filename := fmt.Sprintf("access-%s.log.gz", time.Now().UTC().Format("20060102T150405.000000000"))
	if err := util.WriteFileAt(rotator.archiveDir, filename, compressed.Bytes(), 0o644); err != nil {
		return err
	}
	rotator.logger.Infof("archived %d bytes to %s", len(remainder), filename)
	return nil
}

// splitTail splits content into (remainder, last keepLines lines)
func splitTail(content []byte, keepLines int) ([]byte, []byte) {
	seen := 0
	offset := len(content)
	// skip the trailing newline of the last complete line
	if offset > 0 && content[offset-1] == '\n' {
		offset--
	}
	for offset > 0 {
		index := bytes.LastIndexByte(content[:offset], '\n')
		if index < 0 {
			return nil, content
		}
		seen++
		if seen >= keepLines {
			return content[:index+1], content[index+1:]
		}
		offset = index
	}
	return nil, content
}
