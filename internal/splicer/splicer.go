// Package splicer implements the single-writer stream splicing engine:
// it owns the output sink, the play queue, and the fallback track, and
// is the only component that ever touches the live output serial.
package splicer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ireul-radio/ireul/internal/audioclock"
	"github.com/ireul-radio/ireul/internal/oggfmt"
	"github.com/ireul-radio/ireul/internal/queue"
	"github.com/ireul-radio/ireul/internal/vorbis"
)

// Sink is the output the splicer writes emitted pages to. An Icecast
// SOURCE connection implements this; tests use an in-memory fake.
type Sink interface {
	SendPage(bytes []byte) error
}

// FastForwardKind enumerates the ways a fast-forward can be requested.
// Only track-boundary fast-forwarding is implemented; the type exists so
// the wire protocol's kind enum has somewhere to decode into and future
// kinds don't require a protocol break.
type FastForwardKind uint32

const (
	FastForwardTrackBoundary FastForwardKind = 0
)

// Splicer is the single writer of the output stream: it owns the
// current serial, the pending page buffer, and the play queue, all
// guarded by one exclusive lock shared with control-plane requests.
type Splicer struct {
	mu sync.Mutex

	log   *zap.Logger
	sink  Sink
	clock *audioclock.Clock
	queue *queue.PlayQueue

	fallback *queue.Track

	currentSerial uint32
	pageBuffer    []*oggfmt.Page

	prevGranule  uint64
	prevSerial   uint32
	prevSequence uint32

	playingOffline bool
	playing        *queue.Info
}

// New creates a Splicer seeded with the given starting serial, fallback
// track, and output sink. q must already be configured for the same
// sample rate the fallback track (and every future enqueue) is checked
// against.
func New(q *queue.PlayQueue, fallback *queue.Track, sink Sink, clock *audioclock.Clock, startSerial uint32, log *zap.Logger) *Splicer {
	return &Splicer{
		log:            log,
		sink:           sink,
		clock:          clock,
		queue:          q,
		fallback:       fallback,
		currentSerial:  startSerial,
		playingOffline: true, // nothing has played yet; treat as fallback
	}
}

// Tick runs one iteration of the splicer loop: refilling the page buffer
// if it's empty, emitting the head page to the sink, and returning how
// long the caller should sleep before the next tick.
func (s *Splicer) Tick(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pageBuffer) == 0 {
		s.refillLocked(now)
	}
	if len(s.pageBuffer) == 0 {
		// Nothing to send at all (e.g. the fallback track is empty); there
		// is nothing useful to wait for.
		return 0
	}

	page := s.pageBuffer[0]
	s.pageBuffer = s.pageBuffer[1:]

	s.prevGranule = page.Position()
	s.prevSerial = page.Serial()
	s.prevSequence = page.Sequence()
	if s.playing != nil {
		s.playing.SamplePosition = page.Position()
	}

	if err := s.sink.SendPage(page.Bytes()); err != nil {
		s.log.Error("splicer: failed to send page", zap.Error(err))
	}

	return s.clock.WaitDuration(page, now)
}

// refillLocked replaces an empty page buffer with the next track's
// pages, rewritten onto the splicer's current serial. Called with mu
// held.
func (s *Splicer) refillLocked(now time.Time) {
	if s.playing != nil {
		s.queue.RecordPlaying(*s.playing)
		s.playing = nil
	}

	track, ok := s.queue.PopTrack()
	if !ok {
		track = s.fallback
		s.playingOffline = true
	} else {
		s.playingOffline = false
		info := track.Info()
		info.StartedAt = now
		s.playing = &info
	}

	track.OggTrack().SetSerial(s.currentSerial)
	s.currentSerial++

	s.pageBuffer = append(s.pageBuffer[:0:0], track.OggTrack().Pages()...)
}

// Enqueue validates rawOgg against the splicer's configured sample
// rate, applies an optional comment rewrite, and pushes the result onto
// the play queue. If the splicer is currently playing the fallback
// track, it automatically fast-forwards to hand control to the new
// track without waiting for the fallback to loop around.
func (s *Splicer) Enqueue(rawOgg []byte, metadata []vorbis.CommentField) (queue.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := queue.NewTrack(rawOgg, s.queue.SampleRate())
	if err != nil {
		return 0, err
	}
	if metadata != nil {
		if err := track.RewriteComments(metadata); err != nil {
			return 0, err
		}
	}

	h, err := s.queue.Push(track)
	if err != nil {
		return 0, err
	}

	if s.playingOffline {
		s.fastForwardLocked()
	}
	return h, nil
}

// ReplaceFallback validates rawOgg the same way Enqueue does and
// installs it as the fallback track under handle 0. The current
// fallback plays out its tail naturally; the new one takes over on the
// splicer's next refill.
func (s *Splicer) ReplaceFallback(rawOgg []byte, metadata []vorbis.CommentField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := queue.NewTrack(rawOgg, s.queue.SampleRate())
	if err != nil {
		return err
	}
	if metadata != nil {
		if err := track.RewriteComments(metadata); err != nil {
			return err
		}
	}

	track.Handle = 0
	s.fallback = track
	return nil
}

// FastForward truncates the pending page buffer at the next track
// boundary per kind.
func (s *Splicer) FastForward(kind FastForwardKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind != FastForwardTrackBoundary {
		return fmt.Errorf("splicer: unsupported fast-forward kind %d", kind)
	}
	s.fastForwardLocked()
	return nil
}

// fastForwardLocked walks the pending page buffer, keeping any leading
// continuation pages (packets crossing in from a predecessor already
// emitted) plus every page up to and including the next EOS page, whose
// granule/serial/sequence are rewritten to present a clean end-of-stream
// consistent with what was already sent. Everything after that EOS page
// is dropped; the next tick's refill takes over with a fresh serial.
func (s *Splicer) fastForwardLocked() {
	var kept []*oggfmt.Page

	for i, page := range s.pageBuffer {
		if i == 0 && page.Continued() {
			kept = append(kept, page)
			continue
		}
		kept = append(kept, page)
		if page.EOS() {
			page.Edit().
				SetPosition(s.prevGranule).
				SetSerial(s.prevSerial).
				SetSequence(s.prevSequence + 1).
				Commit()
			break
		}
	}

	s.pageBuffer = kept
}

// QueueStatusSnapshot is the data behind the QueueStatus response. The
// currently-playing track, if any, is the head element of Upcoming.
type QueueStatusSnapshot struct {
	Upcoming []queue.Info
	History  []queue.Info
}

// Status returns a consistent snapshot of what is currently playing,
// what is queued, and recent history.
func (s *Splicer) Status() QueueStatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	upcoming := s.queue.TrackInfos()
	if s.playing != nil {
		upcoming = append([]queue.Info{*s.playing}, upcoming...)
	}
	return QueueStatusSnapshot{
		Upcoming: upcoming,
		History:  s.queue.History(),
	}
}

// RemoveByHandle removes a queued track before it plays.
func (s *Splicer) RemoveByHandle(h queue.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RemoveByHandle(h)
}
