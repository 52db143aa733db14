package oggfmt

import "encoding/binary"

// Builder assembles a sequence of packets into laced Ogg pages, mirroring
// the segment-table rules ParsePage/Track enforce on the way in: runs of
// 255-byte segments carry a packet across a page boundary, and a final
// segment shorter than 255 closes it.
type Builder struct {
	serial   uint32
	sequence uint32
	granule  uint64
	bos      bool

	pending []byte // packet bytes not yet flushed into a page
	segs    []byte // segment table accumulated for the open page
}

// NewBuilder starts a builder for a fresh bitstream. The first page it
// produces is marked BOS.
func NewBuilder(serial uint32) *Builder {
	return &Builder{serial: serial, bos: true}
}

// SetSequence overrides the sequence number the next flushed page will
// carry, and the first page's BOS flag. Used when rebuilding a single
// page in place (e.g. a comment-header rewrite) rather than an entire
// fresh track.
func (b *Builder) SetSequence(seq uint32, bos bool) *Builder {
	b.sequence = seq
	b.bos = bos
	return b
}

// maxPageSegments bounds how many 255-byte segments a single page may
// carry before Builder must start a new page (255 is the one-byte segment
// count field's ceiling).
const maxPageSegments = 255

// AddPacket queues a packet for lacing into pages. granule is the granule
// position to stamp on the page this packet's last segment completes;
// pass the stream's running position (e.g. samples decoded so far). A
// packet whose length is an exact multiple of 255 gets a trailing
// zero-length segment, per the lacing rule that only a segment shorter
// than 255 can terminate a packet.
func (b *Builder) AddPacket(packet []byte, granule uint64) []*pageDraft {
	var drafts []*pageDraft

	remaining := packet
	terminated := false
	for !terminated {
		if len(b.segs) == maxPageSegments {
			drafts = append(drafts, b.flushPage(false))
		}

		if len(remaining) >= 255 {
			b.segs = append(b.segs, 255)
			b.pending = append(b.pending, remaining[:255]...)
			remaining = remaining[255:]
			continue
		}

		b.segs = append(b.segs, byte(len(remaining)))
		b.pending = append(b.pending, remaining...)
		terminated = true
	}

	b.granule = granule
	return drafts
}

// FlushPage forces out whatever packet data has been queued as a page,
// even if it doesn't fill one, and marks the page EOS if this is the
// final page for the bitstream.
func (b *Builder) FlushPage(eos bool) *pageDraft {
	return b.flushPage(eos)
}

func (b *Builder) flushPage(eos bool) *pageDraft {
	d := &pageDraft{
		serial:   b.serial,
		sequence: b.sequence,
		granule:  b.granule,
		bos:      b.bos,
		eos:      eos,
		segs:     append([]byte(nil), b.segs...),
		body:     append([]byte(nil), b.pending...),
	}
	b.sequence++
	b.bos = false
	b.segs = b.segs[:0]
	b.pending = b.pending[:0]
	return d
}

// pageDraft holds the fields needed to serialize one page; Build renders
// it into wire bytes with a correct checksum.
type pageDraft struct {
	serial   uint32
	sequence uint32
	granule  uint64
	bos      bool
	eos      bool
	segs     []byte
	body     []byte
}

// Build renders the draft into an owned, checksummed Page.
func (d *pageDraft) Build() *Page {
	total := segTableOffset + len(d.segs) + len(d.body)
	data := make([]byte, total)

	copy(data[:4], capturePattern)
	data[versionOffset] = 0

	var flags byte
	if d.bos {
		flags |= flagBOS
	}
	if d.eos {
		flags |= flagEOS
	}
	data[flagsOffset] = flags

	binary.LittleEndian.PutUint64(data[granuleOffset:granuleOffset+8], d.granule)
	binary.LittleEndian.PutUint32(data[serialOffset:serialOffset+4], d.serial)
	binary.LittleEndian.PutUint32(data[sequenceOffset:sequenceOffset+4], d.sequence)
	data[segCountOffset] = byte(len(d.segs))
	copy(data[segTableOffset:segTableOffset+len(d.segs)], d.segs)
	copy(data[segTableOffset+len(d.segs):], d.body)

	p := &Page{data: data}
	p.recomputeCRC()
	return p
}
