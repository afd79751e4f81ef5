// Package gelf turns parsed Caddy access log records into GELF envelopes ready
// for transmission
package gelf

import (
	"github.com/goccy/go-json"
)

// Record is one decoded access log entry, a free-form JSON object
//
// A Record is owned by the tailing loop and only lives for one Transform call.
type Record map[string]interface{}

// ParseRecord decodes one log line into a Record
func ParseRecord(line []byte) (Record, error) {
	record := make(Record, 16)
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Section returns a nested JSON object field, e.g. the "request" section
func (record Record) Section(key string) (Record, bool) {
	value, exists := record[key]
	if !exists {
		return nil, false
	}
	section, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Record(section), true
}

// StringField returns a string field or the given default if absent or not a string
func (record Record) StringField(key string, defaultValue string) string {
	if value, ok := record[key].(string); ok {
		return value
	}
	return defaultValue
}

// firstHeaderValue returns the first value of a multi-valued header field, or "" if absent
//
// Caddy logs request headers as {"Name": ["value", ...]}
func firstHeaderValue(headers Record, name string) string {
	values, ok := headers[name].([]interface{})
	if !ok || len(values) == 0 {
		return ""
	}
	first, _ := values[0].(string)
	return first
}
