// Package stats tracks process-wide delivery counters, shared by the forwarding
// client and the rotator and read by the periodic reporter and the shutdown path
package stats

import (
	"fmt"
	"sync"
	"time"
)

// Recorder holds the counters of the agent
//
// All fields are guarded by one mutex; the lock is never held across I/O.
// The same counts are mirrored into Prometheus counters for scraping.
type Recorder struct {
	mutex       sync.Mutex
	forwarded   int64
	failed      int64
	batchesSent int64
	retries     int64
	rotations   int64
	startTime   time.Time
}

// Snapshot is a consistent copy of all counters at one point in time
type Snapshot struct {
	Forwarded   int64
	Failed      int64
	BatchesSent int64
	Retries     int64
	Rotations   int64
	Uptime      time.Duration
}

// NewRecorder creates a Recorder with the start time set to now
func NewRecorder() *Recorder {
	return &Recorder{
		startTime: time.Now(),
	}
}

// OnBatchForwarded records a fully delivered batch; numAttempts counts all attempts including the first
func (recorder *Recorder) OnBatchForwarded(numMessages int, numAttempts int) {
	recorder.mutex.Lock()
	recorder.forwarded += int64(numMessages)
	recorder.batchesSent++
	recorder.retries += int64(numAttempts - 1)
	recorder.mutex.Unlock()

	forwardedMessagesCounter.Add(float64(numMessages))
	sentBatchesCounter.Inc()
	retriesCounter.Add(float64(numAttempts - 1))
}

// OnBatchFailed records a batch given up after exhausting retries, counted per message
func (recorder *Recorder) OnBatchFailed(numMessages int) {
	recorder.mutex.Lock()
	recorder.failed += int64(numMessages)
	recorder.mutex.Unlock()

	failedMessagesCounter.Add(float64(numMessages))
}

// OnRotation records one completed log file rotation
func (recorder *Recorder) OnRotation() {
	recorder.mutex.Lock()
	recorder.rotations++
	recorder.mutex.Unlock()

	rotationsCounter.Inc()
}

// Snapshot returns a copy of the current counters
func (recorder *Recorder) Snapshot() Snapshot {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return Snapshot{
		Forwarded:   recorder.forwarded,
		Failed:      recorder.failed,
		BatchesSent: recorder.batchesSent,
		Retries:     recorder.retries,
		Rotations:   recorder.rotations,
		Uptime:      time.Since(recorder.startTime),
	}
}

func (snapshot Snapshot) String() string {
	return fmt.Sprintf("uptime: %.1fs, forwarded: %d, failed: %d, batches: %d, retries: %d, rotations: %d",
		snapshot.Uptime.Seconds(), snapshot.Forwarded, snapshot.Failed, snapshot.BatchesSent, snapshot.Retries, snapshot.Rotations)
}
