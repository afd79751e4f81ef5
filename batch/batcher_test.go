package batch

import (
	"testing"
	"time"

	"github.com/relex/caddy-gelf-agent/gelf"
	"github.com/relex/gotils/logger"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	batches [][]*gelf.Envelope
	result  bool
}

func (sender *recordingSender) SendBatch(envelopes []*gelf.Envelope) bool {
	// the batcher reuses the slice after flushing
	copied := make([]*gelf.Envelope, len(envelopes))
	copy(copied, envelopes)
	sender.batches = append(sender.batches, copied)
	return sender.result
}

func newTestEnvelope(uri string) *gelf.Envelope {
	return &gelf.Envelope{
		Host:         "caddy",
		ShortMessage: "GET " + uri + " -> 200",
		Level:        gelf.LevelInformational,
		Facility:     "caddy",
	}
}

func TestBatcherFlushOnSize(t *testing.T) {
	sender := &recordingSender{result: true}
	batcher := NewBatcher(logger.Root(), Config{MaxRecords: 3, Timeout: time.Hour}, sender)

	batcher.Add(newTestEnvelope("/1"))
	batcher.Add(newTestEnvelope("/2"))
	assert.Empty(t, sender.batches)
	assert.Equal(t, 2, batcher.Pending())

	batcher.Add(newTestEnvelope("/3"))
	assert.Len(t, sender.batches, 1)
	assert.Len(t, sender.batches[0], 3)
	assert.Equal(t, "GET /1 -> 200", sender.batches[0][0].ShortMessage)
	assert.Equal(t, 0, batcher.Pending())
}

func TestBatcherFlushOnTimeout(t *testing.T) {
	sender := &recordingSender{result: true}
	batcher := NewBatcher(logger.Root(), Config{MaxRecords: 10, Timeout: 30 * time.Millisecond}, sender)

	batcher.Add(newTestEnvelope("/1"))
	batcher.CheckIdle()
	assert.Empty(t, sender.batches)

	time.Sleep(50 * time.Millisecond)
	batcher.CheckIdle()
	assert.Len(t, sender.batches, 1)
	assert.Len(t, sender.batches[0], 1)
	assert.Equal(t, 0, batcher.Pending())
}

func TestBatcherIdleCheckOnEmptyBatch(t *testing.T) {
	sender := &recordingSender{result: true}
	batcher := NewBatcher(logger.Root(), Config{MaxRecords: 10, Timeout: time.Nanosecond}, sender)

	time.Sleep(time.Millisecond)
	batcher.CheckIdle()
	assert.Empty(t, sender.batches)
}

func TestBatcherClearsAfterFailedSend(t *testing.T) {
	sender := &recordingSender{result: false}
	batcher := NewBatcher(logger.Root(), Config{MaxRecords: 1, Timeout: time.Hour}, sender)

	batcher.Add(newTestEnvelope("/1"))
	assert.Len(t, sender.batches, 1)
	assert.Equal(t, 0, batcher.Pending(), "a failed batch must not be re-queued")

	batcher.Add(newTestEnvelope("/2"))
	assert.Len(t, sender.batches, 2)
	assert.Len(t, sender.batches[1], 1)
	assert.Equal(t, "GET /2 -> 200", sender.batches[1][0].ShortMessage)
}

func TestBatcherConfigVerification(t *testing.T) {
	zeroSize := Config{MaxRecords: 0, Timeout: time.Second}
	assert.Error(t, zeroSize.VerifyConfig())

	zeroTimeout := Config{MaxRecords: 1}
	assert.Error(t, zeroTimeout.VerifyConfig())

	valid := Config{MaxRecords: 10, Timeout: 5 * time.Second}
	assert.NoError(t, valid.VerifyConfig())
}
