package gelf

import (
	"github.com/goccy/go-json"
)

// GELF constants fixed by the upstream Graylog setup
const (
	Version            = "1.1"
	LevelInformational = 6
)

// Envelope is one normalized log event in GELF form, immutable once constructed
//
// Extensions hold the additional fields without the "_" prefix; the prefix is
// added during serialization as required by the GELF spec.
type Envelope struct {
	Host         string
	ShortMessage string
	Timestamp    float64 // seconds since epoch
	Level        int
	Facility     string
	Extensions   map[string]interface{}
}

// Marshal serializes the envelope as a flat JSON document
//
// The result has no trailing newline; framing is up to the transport.
func (envelope *Envelope) Marshal() ([]byte, error) {
	document := make(map[string]interface{}, len(envelope.Extensions)+6)
	document["version"] = Version
	document["host"] = envelope.Host
	document["short_message"] = envelope.ShortMessage
	document["timestamp"] = envelope.Timestamp
	document["level"] = envelope.Level
	document["facility"] = envelope.Facility
	for key, value := range envelope.Extensions {
		document["_"+key] = value
	}
	return json.Marshal(document)
}
