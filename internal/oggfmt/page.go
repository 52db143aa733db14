// Package oggfmt implements parsing, validation, and reconstruction of Ogg
// pages and tracks: the framing layer that the splicer rewrites on every
// track join. A Page is a validated byte range, not an independently
// parsed struct — every accessor reads straight out of the backing slice,
// and every setter writes back into it, so a downstream sink always sees
// exactly the bytes the parser saw.
package oggfmt

import (
	"encoding/binary"
)

// Fixed header layout (27 bytes):
//
//	0:4   capture pattern "OggS"
//	4     version (must be 0)
//	5     header type flags (continued/bos/eos)
//	6:14  granule position (LE u64)
//	14:18 bitstream serial number (LE u32)
//	18:22 page sequence number (LE u32)
//	22:26 CRC32 checksum (LE u32)
//	26    page segment count
//	27:   segment table, then packet body
const (
	headerFixedLen = 27
	capturePattern = "OggS"

	versionOffset  = 4
	flagsOffset    = 5
	granuleOffset  = 6
	serialOffset   = 14
	sequenceOffset = 18
	crcFieldOffset = 22
	segCountOffset = 26
	segTableOffset = 27

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04
)

// CheckError is returned when a byte slice does not describe a well-formed
// Ogg page.
type CheckError struct {
	Reason string
}

func (e *CheckError) Error() string { return "oggfmt: " + e.Reason }

var (
	ErrTooShort   = &CheckError{"page shorter than header"}
	ErrBadCapture = &CheckError{"bad capture pattern"}
	ErrBadVersion = &CheckError{"unsupported version"}
	ErrBadCrc     = &CheckError{"checksum mismatch"}
)

// Page is a validated Ogg page backed by a byte slice it does not own
// independently of its Track (see Track.Pages).
type Page struct {
	data []byte
}

// measure returns the header length and body length of the page starting
// at buf[0], without validating the checksum.
func measure(buf []byte) (headerLen, bodyLen int, err error) {
	if len(buf) < headerFixedLen {
		return 0, 0, ErrTooShort
	}
	if string(buf[:4]) != capturePattern {
		return 0, 0, ErrBadCapture
	}
	if buf[versionOffset] != 0 {
		return 0, 0, ErrBadVersion
	}

	segCount := int(buf[segCountOffset])
	if len(buf) < segTableOffset+segCount {
		return 0, 0, ErrTooShort
	}
	segTable := buf[segTableOffset : segTableOffset+segCount]

	body := 0
	for _, s := range segTable {
		body += int(s)
	}

	total := segTableOffset + segCount + body
	if len(buf) < total {
		return 0, 0, ErrTooShort
	}

	return segTableOffset + segCount, body, nil
}

// ParsePage validates a single Ogg page at the start of buf and returns a
// Page whose backing slice is buf[:pageLen]. Trailing bytes in buf beyond
// the page are ignored (used by Track parsing, which walks page by page).
func ParsePage(buf []byte) (*Page, error) {
	hlen, blen, err := measure(buf)
	if err != nil {
		return nil, err
	}
	p := &Page{data: buf[:hlen+blen]}
	if err := p.validateCRC(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) validateCRC() error {
	want := binary.LittleEndian.Uint32(p.data[crcFieldOffset : crcFieldOffset+4])
	got := crcOf(p.data)
	if want != got {
		return ErrBadCrc
	}
	return nil
}

func (p *Page) recomputeCRC() {
	crc := crcOf(p.data)
	binary.LittleEndian.PutUint32(p.data[crcFieldOffset:crcFieldOffset+4], crc)
}

// Bytes returns the page's exact on-wire representation.
func (p *Page) Bytes() []byte { return p.data }

// Len returns the total byte length of the page.
func (p *Page) Len() int { return len(p.data) }

func (p *Page) Position() uint64 {
	return binary.LittleEndian.Uint64(p.data[granuleOffset : granuleOffset+8])
}

func (p *Page) Serial() uint32 {
	return binary.LittleEndian.Uint32(p.data[serialOffset : serialOffset+4])
}

func (p *Page) Sequence() uint32 {
	return binary.LittleEndian.Uint32(p.data[sequenceOffset : sequenceOffset+4])
}

func (p *Page) CRC() uint32 {
	return binary.LittleEndian.Uint32(p.data[crcFieldOffset : crcFieldOffset+4])
}

func (p *Page) flags() byte { return p.data[flagsOffset] }

func (p *Page) Continued() bool { return p.flags()&flagContinued != 0 }
func (p *Page) BOS() bool       { return p.flags()&flagBOS != 0 }
func (p *Page) EOS() bool       { return p.flags()&flagEOS != 0 }

func (p *Page) SegmentCount() int { return int(p.data[segCountOffset]) }

func (p *Page) segmentTable() []byte {
	n := p.SegmentCount()
	return p.data[segTableOffset : segTableOffset+n]
}

// Body returns the page's payload bytes (segment table's concatenated
// segments), excluding the 27-byte fixed header and segment table.
func (p *Page) Body() []byte {
	n := p.SegmentCount()
	return p.data[segTableOffset+n:]
}

// Edit begins a scoped mutation. Every setter writes directly into the
// page's backing bytes; the checksum is recomputed exactly once, when
// Commit is called, no matter how many setters were chained beforehand.
// Callers MUST call Commit — there is no implicit flush on scope exit.
func (p *Page) Edit() *Edit {
	return &Edit{page: p}
}

type Edit struct {
	page *Page
}

func (e *Edit) SetPosition(granule uint64) *Edit {
	binary.LittleEndian.PutUint64(e.page.data[granuleOffset:granuleOffset+8], granule)
	return e
}

func (e *Edit) SetSerial(serial uint32) *Edit {
	binary.LittleEndian.PutUint32(e.page.data[serialOffset:serialOffset+4], serial)
	return e
}

func (e *Edit) SetSequence(seq uint32) *Edit {
	binary.LittleEndian.PutUint32(e.page.data[sequenceOffset:sequenceOffset+4], seq)
	return e
}

func (e *Edit) setFlag(flag byte, on bool) *Edit {
	if on {
		e.page.data[flagsOffset] |= flag
	} else {
		e.page.data[flagsOffset] &^= flag
	}
	return e
}

func (e *Edit) SetContinued(v bool) *Edit { return e.setFlag(flagContinued, v) }
func (e *Edit) SetBOS(v bool) *Edit       { return e.setFlag(flagBOS, v) }
func (e *Edit) SetEOS(v bool) *Edit       { return e.setFlag(flagEOS, v) }

// Commit recomputes and writes the page checksum. It is the single point
// where a CRC pass happens, regardless of how many setters preceded it.
func (e *Edit) Commit() {
	e.page.recomputeCRC()
}

// RawPackets iterates the packet byte slices laced into this page in
// order. A packet spans consecutive segments until one shorter than 255
// bytes closes it; a trailing run of exactly-255 segments leaves the
// final packet open (see EndsWithOpenPacket) — Track.Packets is
// responsible for stitching that continuation to the next page, not this
// accessor.
func (p *Page) RawPackets() [][]byte {
	segTable := p.segmentTable()
	body := p.Body()

	var packets [][]byte
	offset := 0
	start := 0
	for _, s := range segTable {
		offset += int(s)
		if s < 255 {
			packets = append(packets, body[start:offset])
			start = offset
		}
	}
	return packets
}

// EndsWithOpenPacket reports whether the page's final packet is left open
// (its last segment has length 255), meaning the next page's first packet
// is this packet's continuation.
func (p *Page) EndsWithOpenPacket() bool {
	seg := p.segmentTable()
	if len(seg) == 0 {
		return false
	}
	return seg[len(seg)-1] == 255
}
