package queue

import (
	"time"

	"github.com/ireul-radio/ireul/internal/ireulerr"
	"github.com/ireul-radio/ireul/internal/oggfmt"
	"github.com/ireul-radio/ireul/internal/vorbis"
)

// Track is a fully validated, queue-owned Ogg/Vorbis track: the parsed
// container plus the metadata fields callers read most often, decorated
// out of its comment header.
type Track struct {
	Handle   Handle
	track    *oggfmt.Track
	Comments *vorbis.Comments

	Artist string
	Album  string
	Title  string

	SampleRate  uint32
	SampleCount uint64
}

// OggTrack exposes the validated container so the splicer can iterate
// and rewrite its pages.
func (t *Track) OggTrack() *oggfmt.Track { return t.track }

// NewTrack validates rawOgg as a well-formed Ogg/Vorbis track at the
// given sample rate and decorates it into a Track. This is the single
// gate every byte sequence must pass before it can be enqueued or
// installed as the fallback: codec-level validity (pages parse, CRCs
// check, granule positions are non-decreasing, see oggfmt.ParseTrack),
// then Vorbis-level validity (an identification header is reachable and
// its sample rate matches expectedSampleRate, and a comment header is
// reachable).
func NewTrack(rawOgg []byte, expectedSampleRate uint32) (*Track, error) {
	ogg, err := oggfmt.ParseTrack(rawOgg)
	if err != nil {
		return nil, ireulerr.ErrInvalidTrack
	}

	ident, err := vorbis.FindIdentification(ogg.Pages())
	if err != nil {
		return nil, ireulerr.ErrInvalidTrack
	}
	if ident.SampleRate != expectedSampleRate {
		return nil, ireulerr.ErrBadSampleRate
	}

	comments, err := vorbis.FindComments(ogg.Pages())
	if err != nil {
		return nil, ireulerr.ErrInvalidTrack
	}

	t := &Track{
		track:       ogg,
		Comments:    comments,
		SampleRate:  ident.SampleRate,
		SampleCount: ogg.FinalGranule(),
	}
	t.refreshMetadata()
	return t, nil
}

func (t *Track) refreshMetadata() {
	if v, ok := t.Comments.Get("artist"); ok {
		t.Artist = v
	}
	if v, ok := t.Comments.Get("album"); ok {
		t.Album = v
	}
	if v, ok := t.Comments.Get("title"); ok {
		t.Title = v
	}
}

// RewriteComments replaces the track's comment packet with the given
// metadata fields (vendor becomes "Ireul Core", per the enqueue and
// replace-fallback pipelines), updating the cached Artist/Album/Title
// fields in step.
func (t *Track) RewriteComments(fields []vorbis.CommentField) error {
	replacement := &vorbis.Comments{Vendor: "Ireul Core", Comments: fields}
	if err := vorbis.RewriteComments(t.track, replacement); err != nil {
		return err
	}
	t.Comments = replacement
	t.refreshMetadata()
	return nil
}

// Info is a snapshot of a Track's metadata, independent of the track's
// byte buffer, suitable for history and status reporting once the
// underlying Track has been popped or discarded.
type Info struct {
	Handle      Handle
	Artist      string
	Album       string
	Title       string
	SampleRate  uint32
	SampleCount uint64
	StartedAt   time.Time

	// SamplePosition is the granule of the most recently emitted page;
	// only meaningful for the currently-playing entry, set by the
	// splicer, zero otherwise.
	SamplePosition uint64
}

// Info snapshots the track's metadata.
func (t *Track) Info() Info {
	return Info{
		Handle:      t.Handle,
		Artist:      t.Artist,
		Album:       t.Album,
		Title:       t.Title,
		SampleRate:  t.SampleRate,
		SampleCount: t.SampleCount,
	}
}
