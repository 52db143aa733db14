package splicer_test

import (
	"bytes"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ireul-radio/ireul/internal/audioclock"
	"github.com/ireul-radio/ireul/internal/queue"
	"github.com/ireul-radio/ireul/internal/splicer"
	"github.com/ireul-radio/ireul/internal/vorbis"
	"github.com/ireul-radio/ireul/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	sent [][]byte
}

func (f *fakeSink) SendPage(b []byte) error {
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	return nil
}

func newTestSplicer(t *testing.T, sampleRate uint32) (*splicer.Splicer, *fakeSink) {
	t.Helper()

	q, err := queue.New(8, sampleRate)
	require.NoError(t, err)

	fallbackRaw := testutil.BuildTrack(t, sampleRate, "", "fallback", testutil.WithSerial(100))
	fallback, err := queue.NewTrack(fallbackRaw, sampleRate)
	require.NoError(t, err)

	sink := &fakeSink{}
	clock := audioclock.New(sampleRate, time.Now())
	s := splicer.New(q, fallback, sink, clock, 1, zap.NewNop())
	return s, sink
}

// tickUntilPlaying runs ticks (bounded, to avoid hanging a broken test)
// until the splicer reports a non-fallback track as the head of
// Upcoming (the currently-playing entry).
func tickUntilPlaying(t *testing.T, s *splicer.Splicer) splicer.QueueStatusSnapshot {
	t.Helper()
	for i := 0; i < 20; i++ {
		status := s.Status()
		if len(status.Upcoming) > 0 && !status.Upcoming[0].StartedAt.IsZero() {
			return status
		}
		s.Tick(time.Now())
	}
	t.Fatal("splicer never started playing a queued track")
	return splicer.QueueStatusSnapshot{}
}

func TestTickEmitsFallbackWhenQueueEmpty(t *testing.T) {
	s, sink := newTestSplicer(t, 48000)

	s.Tick(time.Now())
	assert.Len(t, sink.sent, 1)

	status := s.Status()
	assert.Empty(t, status.Upcoming)
}

func TestEnqueueAutoFastForwardsWhileOffline(t *testing.T) {
	s, sink := newTestSplicer(t, 48000)

	// Drain one fallback page so the splicer is mid-fallback-track.
	s.Tick(time.Now())
	sentBefore := len(sink.sent)

	raw := testutil.BuildTrack(t, 48000, "Artist", "Title", testutil.WithSerial(1))
	h, err := s.Enqueue(raw, nil)
	require.NoError(t, err)
	assert.NotEqual(t, queue.Handle(0), h)

	// Fast-forward only truncates the pending buffer; it must not emit
	// anything itself.
	assert.Equal(t, sentBefore, len(sink.sent))

	status := tickUntilPlaying(t, s)
	assert.Equal(t, "Title", status.Upcoming[0].Title)
}

func TestReplaceFallbackTakesOverOnNextRefill(t *testing.T) {
	s, sink := newTestSplicer(t, 48000)

	// Start the original fallback so the rest of its pages are buffered.
	s.Tick(time.Now())

	raw := testutil.BuildTrack(t, 48000, "", "new-fallback", testutil.WithSerial(5))
	require.NoError(t, s.ReplaceFallback(raw, nil))

	// Drain the original fallback track's pages entirely, then one more
	// tick to trigger the refill that picks up the replacement.
	for i := 0; i < 20; i++ {
		s.Tick(time.Now())
	}

	assert.NotEmpty(t, sink.sent)
	assert.False(t, bytes.Contains(sink.sent[1], []byte("new-fallback")), "original fallback's buffered pages play out first")
	found := false
	for _, page := range sink.sent {
		if bytes.Contains(page, []byte("new-fallback")) {
			found = true
		}
	}
	assert.True(t, found, "replacement fallback should be emitted after the refill")
}

func TestQueueStatusReflectsUpcomingAndCurrent(t *testing.T) {
	s, _ := newTestSplicer(t, 48000)

	_, err := s.Enqueue(testutil.BuildTrack(t, 48000, "A1", "T1", testutil.WithSerial(1)), nil)
	require.NoError(t, err)
	_, err = s.Enqueue(testutil.BuildTrack(t, 48000, "A2", "T2", testutil.WithSerial(2)), nil)
	require.NoError(t, err)

	status := tickUntilPlaying(t, s)
	require.Len(t, status.Upcoming, 2)
	assert.Equal(t, "T1", status.Upcoming[0].Title)
	assert.Equal(t, "T2", status.Upcoming[1].Title)
}

func TestEnqueueWithMetadataRewritesComments(t *testing.T) {
	s, _ := newTestSplicer(t, 48000)

	raw := testutil.BuildTrack(t, 48000, "Original Artist", "Original Title", testutil.WithSerial(1))
	_, err := s.Enqueue(raw, []vorbis.CommentField{
		{Key: "artist", Value: "Original Artist"},
		{Key: "title", Value: "Renamed Title"},
	})
	require.NoError(t, err)

	status := tickUntilPlaying(t, s)
	assert.Equal(t, "Renamed Title", status.Upcoming[0].Title)
}

func TestFastForwardRejectsUnknownKind(t *testing.T) {
	s, _ := newTestSplicer(t, 48000)
	err := s.FastForward(splicer.FastForwardKind(7))
	assert.Error(t, err)
}
