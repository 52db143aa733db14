package vorbis

import (
	"errors"

	"github.com/ireul-radio/ireul/internal/oggfmt"
)

// ErrCommentSharesPage is returned by RewriteComments when the comment
// packet does not occupy a page by itself. Real encoders always place
// the comment header alone on its own page (it precedes the setup
// header, which is typically large enough to need one anyway), so this
// is treated as an encoding we don't support rather than a case to lace
// around.
var ErrCommentSharesPage = errors.New("vorbis: comment packet does not occupy its page alone")

// RewriteComments replaces track's comment packet with the serialized
// form of replacement and recomputes the checksum of the single affected
// page. Every other page's bytes, including its CRC, are left untouched
// — per the splicer's requirement that a metadata rewrite not perturb
// any audio packet or page boundary.
func RewriteComments(track *oggfmt.Track, replacement *Comments) error {
	for _, page := range track.Pages() {
		raw := page.RawPackets()
		if len(raw) != 1 || !IsComment(raw[0]) {
			for _, pkt := range raw {
				if IsComment(pkt) {
					return ErrCommentSharesPage
				}
			}
			continue
		}

		b := oggfmt.NewBuilder(page.Serial()).SetSequence(page.Sequence(), page.BOS())
		drafts := b.AddPacket(replacement.Build(), page.Position())
		if len(drafts) != 0 {
			// The new comment packet no longer fits on one page; refuse
			// rather than silently restructuring the track into more pages.
			return ErrCommentSharesPage
		}
		rebuilt := b.FlushPage(page.EOS()).Build()
		rebuilt.Edit().
			SetContinued(page.Continued()).
			Commit()

		// Track.Pages aliases fixed byte ranges into one shared buffer, so
		// the track is reassembled into a fresh buffer with the rebuilt page
		// in place of the old one; the pages after it shift if its length
		// changed, with their own bytes copied verbatim.
		var buf []byte
		for _, p := range track.Pages() {
			if p == page {
				p = rebuilt
			}
			buf = append(buf, p.Bytes()...)
		}
		parsed, err := oggfmt.ParseTrack(buf)
		if err != nil {
			return err
		}
		*track = *parsed
		return nil
	}
	return ErrNotFound
}
