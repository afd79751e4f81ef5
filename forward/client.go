// Package forward implements the GELF TCP client delivering envelope batches
// to the Graylog upstream
package forward

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/gelf"
	"github.com/relex/caddy-gelf-agent/stats"
	"github.com/relex/caddy-gelf-agent/util"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
)

// Config defines the output section in config file
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxRetries     int           `yaml:"maxRetries"`
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay"`
}

// Client sends batches of GELF envelopes over TCP, one connection per message
//
// Each message is framed by a trailing newline and sent on a fresh connection,
// so one oversized or malformed message cannot poison the rest of the batch.
// A batch is retried as a whole with exponential backoff; there is no
// partial-batch bookkeeping.
type Client struct {
	logger      logger.Logger
	address     string
	maxRetries  int
	baseDelay   time.Duration
	metrics     *stats.Recorder
	stopRequest channels.Awaitable
}

// Address returns the upstream host:port
func (cfg *Config) Address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// VerifyConfig verifies the output section
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Host) == 0 {
		return fmt.Errorf(".host is unspecified")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf(".port is invalid: %d", cfg.Port)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf(".maxRetries must not be negative, not %d", cfg.MaxRetries)
	}
	if cfg.RetryBaseDelay <= 0 {
		return fmt.Errorf(".retryBaseDelay must be positive, not %s", cfg.RetryBaseDelay)
	}
	return nil
}

// NewClient creates a Client updating the given Recorder
//
// stopRequest interrupts an in-progress backoff sleep; the current batch is
// then abandoned and counted as failed.
func NewClient(parentLogger logger.Logger, config Config, metrics *stats.Recorder, stopRequest channels.Awaitable) *Client {
	address := config.Address()
	return &Client{
		logger: parentLogger.WithFields(logger.Fields{
			defs.LabelComponent: "GELFClient",
			defs.LabelRemote:    address,
		}),
		address:     address,
		maxRetries:  config.MaxRetries,
		baseDelay:   config.RetryBaseDelay,
		metrics:     metrics,
		stopRequest: stopRequest,
	}
}

// SendBatch delivers every envelope in order, retrying the whole batch on any failure
//
// Returns true if a full pass succeeded within maxRetries+1 attempts.
func (client *Client) SendBatch(envelopes []*gelf.Envelope) bool {
	for attempt := 0; ; attempt++ {
		err := client.sendOnce(envelopes)
		if err == nil {
			client.metrics.OnBatchForwarded(len(envelopes), attempt+1)
			return true
		}
		if attempt >= client.maxRetries {
			client.logger.Errorf("all %d attempts failed, last error: %s", attempt+1, err.Error())
			client.metrics.OnBatchFailed(len(envelopes))
			return false
		}
		delay := client.baseDelay * (1 << attempt)
		if util.IsNetworkTimeout(err) {
			client.logger.Warnf("attempt %d timed out: %s, retrying in %s", attempt+1, err.Error(), delay)
		} else {
			client.logger.Warnf("attempt %d failed: %s, retrying in %s", attempt+1, err.Error(), delay)
		}
		if client.stopRequest.Wait(delay) {
			client.logger.Info("stop requested during backoff, abandoning batch")
			client.metrics.OnBatchFailed(len(envelopes))
			return false
		}
	}
}

func (client *Client) sendOnce(envelopes []*gelf.Envelope) error {
	for _, envelope := range envelopes {
		if err := client.sendMessage(envelope); err != nil {
			return err
		}
	}
	return nil
}

func (client *Client) sendMessage(envelope *gelf.Envelope) error {
	data, merr := envelope.Marshal()
	if merr != nil {
		return fmt.Errorf("failed to encode message: %w", merr)
	}
	conn, derr := net.DialTimeout("tcp", client.address, defs.ForwarderSendTimeout)
	if derr != nil {
		return derr
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defs.ForwarderSendTimeout)); err != nil {
		return err
	}
	return util.WriteAll(conn, append(data, '\n'))
}
