package gelf

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/gotils/logger"
	"golang.org/x/exp/slices"
)

// TransformConfig defines the transform section in config file
type TransformConfig struct {
	HostTag     string   `yaml:"hostTag"`
	Facility    string   `yaml:"facility"`
	ExcludeURIs []string `yaml:"excludeURIs"`
}

// Transformer maps access log records to GELF envelopes. Pure aside from counters.
type Transformer struct {
	logger      logger.Logger
	hostTag     string
	facility    string
	excludeURIs []glob.Glob
}

// reservedRecordKeys are top-level record fields already mapped to dedicated
// envelope extensions; everything else is copied as a stringified extra field
var reservedRecordKeys = []string{"ts", "request", "response", "resp_headers", "duration", "status", "size", "bytes_read"}

// VerifyConfig verifies the transform section
func (cfg *TransformConfig) VerifyConfig() error {
	if len(cfg.HostTag) == 0 {
		return fmt.Errorf(".hostTag is unspecified")
	}
	if len(cfg.Facility) == 0 {
		return fmt.Errorf(".facility is unspecified")
	}
	for i, pattern := range cfg.ExcludeURIs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf(".excludeURIs[%d] is invalid: %w", i, err)
		}
	}
	return nil
}

// NewTransformer creates a Transformer from verified config
func (cfg *TransformConfig) NewTransformer(parentLogger logger.Logger) *Transformer {
	excludeURIs := make([]glob.Glob, 0, len(cfg.ExcludeURIs))
	for _, pattern := range cfg.ExcludeURIs {
		excludeURIs = append(excludeURIs, glob.MustCompile(pattern))
	}
	return &Transformer{
		logger:      parentLogger.WithField(defs.LabelComponent, "Transformer"),
		hostTag:     cfg.HostTag,
		facility:    cfg.Facility,
		excludeURIs: excludeURIs,
	}
}

// Transform builds the GELF envelope for one access log record
//
// Records without a "request" section, or with neither "response" nor
// "resp_headers", are internal Caddy logs and yield nil. Records whose URI
// matches an exclusion pattern also yield nil, counted separately.
func (transformer *Transformer) Transform(record Record) *Envelope {
	request, hasRequest := record.Section("request")
	if !hasRequest {
		skippedInternalCounter.Inc()
		return nil
	}
	_, hasResponse := record["response"]
	_, hasRespHeaders := record["resp_headers"]
	if !hasResponse && !hasRespHeaders {
		skippedInternalCounter.Inc()
		return nil
	}

	method := request.StringField("method", "UNKNOWN")
	uri := request.StringField("uri", "/")
	for _, pattern := range transformer.excludeURIs {
		if pattern.Match(uri) {
			skippedExcludedCounter.Inc()
			return nil
		}
	}

	status, hasStatus := record["status"]
	if !hasStatus {
		status = 0
	}

	headers, _ := request.Section("headers")
	forwardedFor := firstHeaderValue(headers, "X-Forwarded-For")
	realIP := firstHeaderValue(headers, "X-Real-IP")

	// most trusted source first: the reverse proxy in front may rewrite or omit these
	clientIP := forwardedFor
	if clientIP == "" {
		clientIP = realIP
	}
	if clientIP == "" {
		clientIP = request.StringField("remote_ip", "")
	}

	duration, hasDuration := record["duration"]
	if !hasDuration {
		duration = ""
	}
	size, hasSize := record["size"]
	if !hasSize {
		size = 0
	}
	bytesRead, hasBytesRead := record["bytes_read"]
	if !hasBytesRead {
		bytesRead = 0
	}

	timestamp, hasTimestamp := record["ts"].(float64)
	if !hasTimestamp {
		timestamp = float64(time.Now().UnixNano()) / 1e9
	}

	extensions := map[string]interface{}{
		"service":         transformer.hostTag,
		"method":          method,
		"uri":             uri,
		"status":          status,
		"duration":        duration,
		"client_ip":       clientIP,
		"remote_ip":       request.StringField("remote_ip", ""),
		"x_forwarded_for": forwardedFor,
		"x_real_ip":       realIP,
		"user_agent":      firstHeaderValue(headers, "User-Agent"),
		"host":            request.StringField("host", ""),
		"proto":           request.StringField("proto", ""),
		"size":            size,
		"bytes_read":      bytesRead,
	}
	// keep unanticipated fields, stringified, so nothing is lost
	for key, value := range record {
		if slices.Contains(reservedRecordKeys, key) {
			continue
		}
		extensions[key] = fmt.Sprint(value)
	}

	return &Envelope{
		Host:         transformer.hostTag,
		ShortMessage: fmt.Sprintf("%s %s -> %v", method, uri, status),
		Timestamp:    timestamp,
		Level:        LevelInformational,
		Facility:     transformer.facility,
		Extensions:   extensions,
	}
}
