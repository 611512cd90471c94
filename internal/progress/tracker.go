package progress

import (
	"sync"
	"time"

	"github.com/ytget/mediadl/internal/model"
)

// Tracker converts raw engine callbacks into normalized events.
// It is safe for concurrent use and does O(1) work per event.
type Tracker struct {
	mu       sync.Mutex
	mailbox  *Mailbox
	now      func() time.Time
	base     int64 // bytes of streams that already completed
	done     int64
	total    int64
	fraction float64
	hasFrac  bool
	terminal *model.ProgressEvent

	// current stream
	started     bool
	stream      int
	streamKey   string
	lastRaw     int64
	streamDone  int64
	streamTotal int64
	streamFrac  float64
	streamHas   bool
}

// NewTracker creates a tracker publishing to mailbox (which may be nil)
func NewTracker(mailbox *Mailbox) *Tracker {
	return &Tracker{mailbox: mailbox, now: time.Now}
}

// OnEvent normalizes raw and publishes the result. After a terminal event
// further input is ignored and the terminal event is returned again.
func (t *Tracker) OnEvent(raw model.RawEvent) model.ProgressEvent {
	t.mu.Lock()
	if t.terminal != nil {
		ev := *t.terminal
		t.mu.Unlock()
		return ev
	}

	var ev model.ProgressEvent
	switch raw.Status {
	case model.RawFinished:
		ev = t.finish()
	case model.RawError:
		ev = t.fail(raw.Error)
	default:
		ev = t.advance(raw)
	}
	ev.Timestamp = t.now()
	if ev.Phase.IsTerminal() {
		stored := ev
		t.terminal = &stored
	}
	t.mu.Unlock()

	if t.mailbox != nil {
		t.mailbox.Publish(ev)
	}
	return ev
}

// Fail emits the terminal failure event unless one was already emitted
func (t *Tracker) Fail(message string) model.ProgressEvent {
	return t.OnEvent(model.RawEvent{Status: model.RawError, Error: message})
}

// Finish emits the terminal success event unless one was already emitted
func (t *Tracker) Finish() model.ProgressEvent {
	return t.OnEvent(model.RawEvent{Status: model.RawFinished})
}

// Last returns the terminal event if one was emitted
func (t *Tracker) Last() (model.ProgressEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal == nil {
		return model.ProgressEvent{}, false
	}
	return *t.terminal, true
}

func (t *Tracker) advance(raw model.RawEvent) model.ProgressEvent {
	downloaded := raw.DownloadedBytes
	if downloaded < 0 {
		downloaded = 0
	}
	total, estimated := raw.TotalBytes, false
	if total <= 0 && raw.TotalBytesEstimate > 0 {
		total, estimated = raw.TotalBytesEstimate, true
	}

	if t.started && t.isNextStream(raw.Filename, downloaded, total) {
		t.base += t.streamDone
		t.stream++
		t.streamDone, t.streamTotal = 0, 0
		t.streamFrac, t.streamHas = 0, false
	}
	t.started = true
	t.lastRaw = downloaded
	if raw.Filename != "" {
		t.streamKey = raw.Filename
	}

	// a retried stream restarts from zero; keep the furthest point reached
	if downloaded > t.streamDone {
		t.streamDone = downloaded
	}
	if d := t.base + t.streamDone; d > t.done {
		t.done = d
	}

	ev := model.ProgressEvent{
		Phase:           model.PhaseDownloading,
		BytesDone:       t.done,
		Estimated:       estimated,
		Stream:          t.stream,
		StreamBytesDone: t.streamDone,
	}

	if total > 0 {
		t.streamTotal = total
		t.total = t.base + total
		ev.BytesTotal = t.total
		ev.StreamBytesTotal = total
		t.raise(float64(t.base+t.streamDone) / float64(t.total))
		t.raiseStream(float64(t.streamDone) / float64(total))
	}

	ev.Fraction = t.fraction
	ev.HasFraction = t.hasFrac
	ev.StreamFraction = t.streamFrac
	ev.HasStreamFraction = t.streamHas
	return ev
}

// isNextStream reports whether raw belongs to a new stream rather than the
// current one. A changed filename always starts a stream. Without filenames a
// dropping counter does, unless the total is unchanged, which is a retry.
func (t *Tracker) isNextStream(filename string, downloaded, total int64) bool {
	if filename != "" && t.streamKey != "" {
		return filename != t.streamKey
	}
	if downloaded >= t.lastRaw {
		return false
	}
	return total <= 0 || total != t.streamTotal
}

// raise moves the fraction forward only, clamped to 1.0
func (t *Tracker) raise(frac float64) {
	t.fraction, t.hasFrac = forward(t.fraction, t.hasFrac, frac)
}

func (t *Tracker) raiseStream(frac float64) {
	t.streamFrac, t.streamHas = forward(t.streamFrac, t.streamHas, frac)
}

func forward(cur float64, has bool, frac float64) (float64, bool) {
	if frac > 1 {
		frac = 1
	}
	if !has || frac > cur {
		return frac, true
	}
	return cur, true
}

func (t *Tracker) finish() model.ProgressEvent {
	t.fraction = 1
	t.hasFrac = true
	return model.ProgressEvent{
		Phase:             model.PhaseFinished,
		BytesDone:         t.done,
		BytesTotal:        t.total,
		Fraction:          1,
		HasFraction:       true,
		Stream:            t.stream,
		StreamBytesDone:   t.streamDone,
		StreamBytesTotal:  t.streamTotal,
		StreamFraction:    1,
		HasStreamFraction: true,
	}
}

func (t *Tracker) fail(message string) model.ProgressEvent {
	return model.ProgressEvent{
		Phase:             model.PhaseFailed,
		BytesDone:         t.done,
		BytesTotal:        t.total,
		Fraction:          t.fraction,
		HasFraction:       t.hasFrac,
		Message:           message,
		Stream:            t.stream,
		StreamBytesDone:   t.streamDone,
		StreamBytesTotal:  t.streamTotal,
		StreamFraction:    t.streamFrac,
		HasStreamFraction: t.streamHas,
	}
}
