// Package journal is the hub's record of approved scene events plus a
// rolling buffer of full-scene keyframes used for client resynchronisation.
package journal

import (
	"sync"
	"time"

	"tableslate/server/internal/scene"
)

// Telemetry captures the metrics adapter used by the journal to report
// rejected or dropped entries.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

const (
	metricJournalRejectedEvent = "journal_rejected_event"
	metricJournalStaleRequest  = "journal_stale_request"
)

// Record is one approved event in sequence order.
type Record struct {
	Sequence   uint64      `json:"sequence"`
	UserID     scene.Id    `json:"userId"`
	RequestID  int64       `json:"requestId"`
	Event      scene.Event `json:"event"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// Keyframe captures a full snapshot of the scene. The blob is the scene's
// own export format so rehydration goes through the same import path as a
// wholesale scene change.
type Keyframe struct {
	Sequence   uint64    `json:"sequence"`
	Scene      []byte    `json:"scene"`
	RecordedAt time.Time `json:"recordedAt"`
}

type KeyframeEviction struct {
	Sequence uint64
	Reason   string
}

type KeyframeRecordResult struct {
	Size           int
	OldestSequence uint64
	NewestSequence uint64
	Evicted        []KeyframeEviction
}

// Journal accumulates approved events between broadcasts and keeps a
// bounded keyframe history so lagging clients can rehydrate without
// replaying the whole session.
type Journal struct {
	mu        sync.RWMutex
	seq       uint64
	records   []Record
	keyframes []Keyframe
	maxFrames int
	maxAge    time.Duration
	telemetry Telemetry
	resync    *Policy
}

// New constructs a journal with storage for the configured number of
// keyframes and retention window.
func New(keyframeCapacity int, maxAge time.Duration) Journal {
	if keyframeCapacity < 0 {
		keyframeCapacity = 0
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return Journal{
		records:   make([]Record, 0),
		keyframes: make([]Keyframe, 0, keyframeCapacity),
		maxFrames: keyframeCapacity,
		maxAge:    maxAge,
		resync:    NewPolicy(),
	}
}

// Append records an approved event and returns the stored record with its
// assigned sequence number.
func (j *Journal) Append(userID scene.Id, requestID int64, e scene.Event) Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.resync != nil {
		j.resync.NoteEvent()
	}
	j.seq++
	record := Record{
		Sequence:   j.seq,
		UserID:     userID,
		RequestID:  requestID,
		Event:      e,
		RecordedAt: time.Now(),
	}
	j.records = append(j.records, record)
	return record
}

// NoteRejection feeds the resync policy and telemetry. A client whose
// requests keep bouncing has drifted; enough rejections trigger a
// wholesale scene change for it.
func (j *Journal) NoteRejection(reason string, userID scene.Id) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.resync != nil {
		j.resync.NoteEvent()
		j.resync.NoteRejection(reason, userID)
	}
	j.recordJournalDropLocked(metricJournalRejectedEvent)
}

// NoteStaleRequest records an acknowledgement that matched no outstanding
// request.
func (j *Journal) NoteStaleRequest() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recordJournalDropLocked(metricJournalStaleRequest)
}

// Sequence returns the sequence number of the most recent record.
func (j *Journal) Sequence() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seq
}

// DrainRecords returns all staged records and clears the in-memory slice.
func (j *Journal) DrainRecords() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.records) == 0 {
		return nil
	}
	drained := make([]Record, len(j.records))
	copy(drained, j.records)
	j.records = j.records[:0]
	return drained
}

// SnapshotRecords returns a copy of the staged records without clearing
// the journal.
func (j *Journal) SnapshotRecords() []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.records) == 0 {
		return nil
	}
	snapshot := make([]Record, len(j.records))
	copy(snapshot, j.records)
	return snapshot
}

// RestoreRecords prepends drained records back into the journal. Used when
// a caller drains but then fails to broadcast and must retry without
// losing events.
func (j *Journal) RestoreRecords(records []Record) {
	if len(records) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	restored := make([]Record, 0, len(records)+len(j.records))
	restored = append(restored, records...)
	restored = append(restored, j.records...)
	j.records = restored
}

// ConsumeResyncHint reports whether rejection pressure crossed the policy
// threshold. Counters reset after each consumption.
func (j *Journal) ConsumeResyncHint() (ResyncSignal, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.resync == nil {
		return ResyncSignal{}, false
	}
	return j.resync.Consume()
}

// RecordKeyframe stores a keyframe in the buffer enforcing retention
// limits by count and age.
func (j *Journal) RecordKeyframe(frame Keyframe) KeyframeRecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.maxFrames == 0 {
		j.keyframes = j.keyframes[:0]
		return KeyframeRecordResult{}
	}

	frame.RecordedAt = time.Now()
	j.keyframes = append(j.keyframes, frame)

	cutoff := time.Time{}
	if j.maxAge > 0 {
		cutoff = frame.RecordedAt.Add(-j.maxAge)
	}

	evicted := make([]KeyframeEviction, 0)
	if !cutoff.IsZero() {
		idx := 0
		for idx < len(j.keyframes) {
			if !j.keyframes[idx].RecordedAt.Before(cutoff) {
				break
			}
			evicted = append(evicted, KeyframeEviction{
				Sequence: j.keyframes[idx].Sequence,
				Reason:   "expired",
			})
			idx++
		}
		if idx > 0 {
			copy(j.keyframes, j.keyframes[idx:])
			j.keyframes = j.keyframes[:len(j.keyframes)-idx]
		}
	}

	if j.maxFrames > 0 && len(j.keyframes) > j.maxFrames {
		overflow := len(j.keyframes) - j.maxFrames
		for i := 0; i < overflow; i++ {
			evicted = append(evicted, KeyframeEviction{
				Sequence: j.keyframes[i].Sequence,
				Reason:   "count",
			})
		}
		copy(j.keyframes, j.keyframes[overflow:])
		j.keyframes = j.keyframes[:len(j.keyframes)-overflow]
	}

	size := len(j.keyframes)
	result := KeyframeRecordResult{Size: size}
	if size > 0 {
		result.OldestSequence = j.keyframes[0].Sequence
		result.NewestSequence = j.keyframes[size-1].Sequence
	}
	result.Evicted = evicted
	return result
}

// Keyframes exposes the current buffer contents in chronological order.
// Callers receive a copy to avoid holding references into the buffer.
func (j *Journal) Keyframes() []Keyframe {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.keyframes) == 0 {
		return nil
	}
	frames := make([]Keyframe, len(j.keyframes))
	copy(frames, j.keyframes)
	return frames
}

// KeyframeBySequence returns the keyframe matching the provided sequence.
func (j *Journal) KeyframeBySequence(sequence uint64) (Keyframe, bool) {
	if sequence == 0 {
		return Keyframe{}, false
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, frame := range j.keyframes {
		if frame.Sequence == sequence {
			return frame, true
		}
	}
	return Keyframe{}, false
}

// KeyframeWindow reports the current retention window.
func (j *Journal) KeyframeWindow() (size int, oldest, newest uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	size = len(j.keyframes)
	if size == 0 {
		return size, 0, 0
	}
	oldest = j.keyframes[0].Sequence
	newest = j.keyframes[size-1].Sequence
	return size, oldest, newest
}

func (j *Journal) recordJournalDropLocked(metric string) {
	if j.telemetry == nil || metric == "" {
		return
	}
	j.telemetry.RecordJournalDrop(metric)
}

func (j *Journal) AttachTelemetry(t Telemetry) {
	j.mu.Lock()
	j.telemetry = t
	j.mu.Unlock()
}
