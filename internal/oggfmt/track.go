package oggfmt

import "fmt"

// Track is a validated, contiguous run of Ogg pages belonging to a single
// logical bitstream: the unit the splicer enqueues, rewrites, and emits.
// Its pages share one backing buffer, so editing a Page found via Pages()
// mutates the Track's own bytes — there is no copy-out/copy-back step.
type Track struct {
	buf   []byte
	pages []*Page
}

// ValidationError describes why a byte buffer was rejected as a Track.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "oggfmt: track: " + e.Reason }

// ParseTrack walks buf page by page and validates it as a single logical
// bitstream:
//
//   - every page parses and checksums cleanly
//   - the first page is a BOS page and no other page is
//   - the last page is an EOS page and no other page is
//   - every page carries the same serial number
//   - granule positions are non-decreasing across pages
//   - buf is consumed exactly, with no trailing bytes after the last page
//
// buf is retained by the returned Track; callers must not reuse it.
func ParseTrack(buf []byte) (*Track, error) {
	var pages []*Page
	offset := 0
	for offset < len(buf) {
		p, err := ParsePage(buf[offset:])
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
		offset += p.Len()
	}
	if offset != len(buf) {
		return nil, &ValidationError{"trailing bytes after last page"}
	}

	t := &Track{buf: buf, pages: pages}
	if err := t.validateStructure(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Track) validateStructure() error {
	if len(t.pages) == 0 {
		return &ValidationError{"track has no pages"}
	}

	first := t.pages[0]
	last := t.pages[len(t.pages)-1]

	if !first.BOS() {
		return &ValidationError{"first page is not BOS"}
	}
	if !last.EOS() {
		return &ValidationError{"last page is not EOS"}
	}

	serial := first.Serial()
	var prevGranule uint64
	for i, p := range t.pages {
		if p.Serial() != serial {
			return &ValidationError{fmt.Sprintf("page %d: serial %d does not match track serial %d", i, p.Serial(), serial)}
		}
		if i > 0 && p.BOS() {
			return &ValidationError{fmt.Sprintf("page %d: unexpected BOS page mid-track", i)}
		}
		if i < len(t.pages)-1 && p.EOS() {
			return &ValidationError{fmt.Sprintf("page %d: unexpected EOS page mid-track", i)}
		}
		if i > 0 && p.Position() < prevGranule {
			return &ValidationError{fmt.Sprintf("page %d: granule position %d precedes earlier %d", i, p.Position(), prevGranule)}
		}
		prevGranule = p.Position()
	}

	return nil
}

// Pages returns the track's pages in order. The returned Page values alias
// the track's backing buffer: calling Edit()/Commit() on one mutates the
// track in place.
func (t *Track) Pages() []*Page { return t.pages }

// Serial returns the bitstream serial number shared by every page.
func (t *Track) Serial() uint32 { return t.pages[0].Serial() }

// FinalGranule returns the granule position of the last page, i.e. the
// track's total duration in codec-native units.
func (t *Track) FinalGranule() uint64 { return t.pages[len(t.pages)-1].Position() }

// Bytes returns the track's full on-wire representation.
func (t *Track) Bytes() []byte { return t.buf }

// Len returns the total byte length of the track.
func (t *Track) Len() int { return len(t.buf) }

// SetSerial rewrites the serial number of every page in the track and
// recomputes each page's checksum. Used by the splicer when stitching a
// track onto an output stream under a different serial.
func (t *Track) SetSerial(serial uint32) {
	for _, p := range t.pages {
		p.Edit().SetSerial(serial).Commit()
	}
}

// Packets reassembles the track's packet stream, stitching packets that
// span a page boundary (a page ending in a 255-byte segment continues
// into the next page's leading segments). Each returned packet is a
// freshly allocated slice; callers may hold onto them independently of
// the track's backing buffer.
func (t *Track) Packets() [][]byte {
	var packets [][]byte
	var carry []byte

	for _, p := range t.pages {
		raw := p.RawPackets()
		open := p.EndsWithOpenPacket()
		consumed := 0

		for i, pkt := range raw {
			consumed += len(pkt)
			if len(carry) > 0 && i == 0 {
				joined := make([]byte, 0, len(carry)+len(pkt))
				joined = append(joined, carry...)
				joined = append(joined, pkt...)
				carry = nil
				pkt = joined
			}
			packets = append(packets, append([]byte(nil), pkt...))
		}

		if open {
			// The bytes after the last closed packet (the whole body, if no
			// segment on this page closes a packet) are carried to the next page.
			carry = append(carry, p.Body()[consumed:]...)
		}
	}

	return packets
}

// FirstPageIsLeadingContinuation reports whether the track's first page
// is marked continued, meaning it carries the tail of a packet from a
// predecessor the track does not include. The splicer's fast-forward
// logic must preserve such a leading page rather than truncate it away.
func (t *Track) FirstPageIsLeadingContinuation() bool {
	return t.pages[0].Continued()
}
