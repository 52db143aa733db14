package queue

import "github.com/ireul-radio/ireul/internal/ireulerr"

// HistoryCapacity bounds how many played tracks' Info is retained.
const HistoryCapacity = 10

// PlayQueue is the FIFO of tracks waiting to play, plus a bounded
// history of what already played. It owns the handle allocator: every
// handle it hands out is unique among the queue's own live entries and
// its retained history, for the allocator's lifetime.
type PlayQueue struct {
	alloc      *handleAllocator
	sampleRate uint32
	capacity   int

	items   []*Track
	history []Info
}

// New creates an empty PlayQueue that accepts up to capacity queued
// tracks at the given sample rate, plus up to HistoryCapacity history
// entries sharing the same handle live-set. A popped track keeps its
// handle live until RecordPlaying moves it into history, so while one is
// outstanding and history is full, Push fails with ErrFull one track
// short of capacity.
func New(capacity int, sampleRate uint32) (*PlayQueue, error) {
	alloc, err := newHandleAllocator(capacity + HistoryCapacity)
	if err != nil {
		return nil, err
	}
	return &PlayQueue{alloc: alloc, sampleRate: sampleRate, capacity: capacity}, nil
}

// SampleRate returns the rate every enqueued track must match.
func (q *PlayQueue) SampleRate() uint32 { return q.sampleRate }

// AddTrack validates rawOgg, decorates it into a Track, allocates it a
// handle, and appends it to the tail of the queue. Callers that need to
// apply a metadata rewrite before the track is visible in the queue
// (the splicer's enqueue pipeline) should use NewTrack and Push instead.
func (q *PlayQueue) AddTrack(rawOgg []byte) (Handle, error) {
	track, err := NewTrack(rawOgg, q.sampleRate)
	if err != nil {
		return 0, err
	}
	return q.Push(track)
}

// Push allocates a handle for an already-validated track and appends it
// to the tail of the queue.
func (q *PlayQueue) Push(track *Track) (Handle, error) {
	if len(q.items) >= q.capacity {
		return 0, ireulerr.ErrFull
	}

	h, err := q.alloc.allocate()
	if err != nil {
		return 0, err
	}
	track.Handle = h
	q.items = append(q.items, track)
	return h, nil
}

// PopTrack removes and returns the head of the queue, or (nil, false) if
// the queue is empty. The caller is responsible for moving the popped
// track into history via RecordPlaying once it starts playing.
func (q *PlayQueue) PopTrack() (*Track, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	track := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return track, true
}

// RecordPlaying pushes info onto the front of history, trimming the tail
// to HistoryCapacity and disposing the handles that fall off.
func (q *PlayQueue) RecordPlaying(info Info) {
	q.history = append([]Info{info}, q.history...)
	for len(q.history) > HistoryCapacity {
		last := q.history[len(q.history)-1]
		q.history = q.history[:len(q.history)-1]
		_ = q.alloc.dispose(last.Handle)
	}
}

// RemoveByHandle removes a queued (not yet playing) track by handle,
// disposing its handle. Returns ErrUnknownHandle if no queued item
// carries that handle.
func (q *PlayQueue) RemoveByHandle(h Handle) error {
	for i, t := range q.items {
		if t.Handle == h {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.alloc.dispose(h)
		}
	}
	return ireulerr.ErrUnknownHandle
}

// Reorder rearranges the queue to match the given handle order exactly.
// order must be a permutation of the queue's current handles; any
// mismatch (missing, duplicate, or foreign handle) leaves the queue
// untouched and returns ErrUnknownHandle.
func (q *PlayQueue) Reorder(order []Handle) error {
	if len(order) != len(q.items) {
		return ireulerr.ErrUnknownHandle
	}

	byHandle := make(map[Handle]*Track, len(q.items))
	for _, t := range q.items {
		byHandle[t.Handle] = t
	}

	reordered := make([]*Track, len(order))
	for i, h := range order {
		t, ok := byHandle[h]
		if !ok {
			return ireulerr.ErrUnknownHandle
		}
		reordered[i] = t
		delete(byHandle, h)
	}
	if len(byHandle) != 0 {
		return ireulerr.ErrUnknownHandle
	}

	q.items = reordered
	return nil
}

// TrackInfos returns Info snapshots of the queued (not yet playing)
// tracks, in FIFO order.
func (q *PlayQueue) TrackInfos() []Info {
	out := make([]Info, len(q.items))
	for i, t := range q.items {
		out[i] = t.Info()
	}
	return out
}

// History returns a copy of the retained play history, most recent
// first, excluding the currently-playing item (which the splicer owns
// and reports separately).
func (q *PlayQueue) History() []Info {
	out := make([]Info, len(q.history))
	copy(out, q.history)
	return out
}

// Len returns the number of tracks currently queued (not counting the
// item playing or history).
func (q *PlayQueue) Len() int { return len(q.items) }
