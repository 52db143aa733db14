// Package protocol implements Ireul's control-plane wire format: a
// length-prefixed frame envelope carrying a self-describing, forward-
// compatible TLV value codec.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Tag is the 2-byte big-endian type tag every encoded value begins
// with.
type Tag uint16

const (
	TagArray     Tag = 0x0000
	TagBlob      Tag = 0x0002
	TagStruct    Tag = 0x0005
	TagVoid      Tag = 0x0080
	TagU16       Tag = 0x0081
	TagU32       Tag = 0x0082
	TagU64       Tag = 0x0083
	TagString    Tag = 0x0084
	TagResultOk  Tag = 0x0085
	TagResultErr Tag = 0x0086
	TagTuple     Tag = 0x0087
)

// DecodeError reports a malformed TLV value.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "protocol: " + e.Reason }

// Encoder builds a TLV-encoded byte buffer incrementally. Every Write*
// method appends a complete self-describing value (tag plus payload).
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) putTag(t Tag) { e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(t)) }

func (e *Encoder) WriteVoid() { e.putTag(TagVoid) }

func (e *Encoder) WriteU16(v uint16) {
	e.putTag(TagU16)
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) WriteU32(v uint32) {
	e.putTag(TagU32)
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) WriteU64(v uint64) {
	e.putTag(TagU64)
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) WriteString(s string) {
	e.putTag(TagString)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *Encoder) WriteBlob(b []byte) {
	e.putTag(TagBlob)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteArray writes n self-describing elements, each emitted by write.
func (e *Encoder) WriteArray(n int, write func(i int)) {
	e.putTag(TagArray)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
	for i := 0; i < n; i++ {
		write(i)
	}
}

// WriteTuple writes a fixed-size self-describing tuple, one element per
// write function.
func (e *Encoder) WriteTuple(writes ...func()) {
	e.putTag(TagTuple)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(writes)))
	for _, w := range writes {
		w()
	}
}

// StructField is one (name, value) pair of a struct value; value is
// emitted by calling write against the same Encoder.
type StructField struct {
	Name  string
	Write func(e *Encoder)
}

// WriteStruct writes a struct value: a field count followed by that
// many (string name, self-describing value) pairs.
func (e *Encoder) WriteStruct(fields ...StructField) {
	e.putTag(TagStruct)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(fields)))
	for _, f := range fields {
		e.WriteString(f.Name)
		f.Write(e)
	}
}

// WriteResultOk writes a Result tagged as Ok, with ok emitted by write.
func (e *Encoder) WriteResultOk(write func(e *Encoder)) {
	e.putTag(TagResultOk)
	write(e)
}

// WriteResultErr writes a Result tagged as Err, carrying a string
// describing the failure.
func (e *Encoder) WriteResultErr(message string) {
	e.putTag(TagResultErr)
	e.WriteString(message)
}

// Decoder reads TLV values out of a byte buffer in order.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) remaining() []byte { return d.buf[d.off:] }

func (d *Decoder) need(n int) error {
	if len(d.buf)-d.off < n {
		return &DecodeError{"truncated value"}
	}
	return nil
}

func (d *Decoder) peekTag() (Tag, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	return Tag(binary.BigEndian.Uint16(d.remaining())), nil
}

func (d *Decoder) readTag(want Tag) error {
	t, err := d.peekTag()
	if err != nil {
		return err
	}
	if t != want {
		return &DecodeError{fmt.Sprintf("expected tag %#04x, got %#04x", want, t)}
	}
	d.off += 2
	return nil
}

func (d *Decoder) ReadU16() (uint16, error) {
	if err := d.readTag(TagU16); err != nil {
		return 0, err
	}
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.remaining())
	d.off += 2
	return v, nil
}

func (d *Decoder) ReadU32() (uint32, error) {
	if err := d.readTag(TagU32); err != nil {
		return 0, err
	}
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.remaining())
	d.off += 4
	return v, nil
}

func (d *Decoder) ReadU64() (uint64, error) {
	if err := d.readTag(TagU64); err != nil {
		return 0, err
	}
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.remaining())
	d.off += 8
	return v, nil
}

func (d *Decoder) ReadString() (string, error) {
	if err := d.readTag(TagString); err != nil {
		return "", err
	}
	return d.readLengthPrefixed()
}

func (d *Decoder) ReadBlob() ([]byte, error) {
	if err := d.readTag(TagBlob); err != nil {
		return nil, err
	}
	s, err := d.readLengthPrefixed()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (d *Decoder) readLengthPrefixed() (string, error) {
	if err := d.need(4); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(d.remaining())
	d.off += 4
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

// ReadArrayLen reads an array tag and its element count; the caller
// reads exactly that many subsequent self-describing values.
func (d *Decoder) ReadArrayLen() (int, error) {
	if err := d.readTag(TagArray); err != nil {
		return 0, err
	}
	if err := d.need(4); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(d.remaining())
	d.off += 4
	return int(n), nil
}

// ReadTupleLen reads a tuple tag and its element count.
func (d *Decoder) ReadTupleLen() (int, error) {
	if err := d.readTag(TagTuple); err != nil {
		return 0, err
	}
	if err := d.need(4); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(d.remaining())
	d.off += 4
	return int(n), nil
}

// ReadStructFields reads a struct tag and its field count, invoking
// onField(name) for each field; onField must itself consume exactly one
// self-describing value (its own, or via Skip for fields it doesn't
// recognize). This is the forward-compatibility contract: an unknown
// field name is not an error, it is simply skipped.
func (d *Decoder) ReadStructFields(onField func(name string) error) error {
	if err := d.readTag(TagStruct); err != nil {
		return err
	}
	if err := d.need(4); err != nil {
		return err
	}
	count := binary.BigEndian.Uint32(d.remaining())
	d.off += 4

	for i := uint32(0); i < count; i++ {
		name, err := d.ReadString()
		if err != nil {
			return err
		}
		if err := onField(name); err != nil {
			return err
		}
	}
	return nil
}

// Skip consumes and discards exactly one self-describing value,
// recursing into arrays/tuples/structs as needed. Used to implement
// forward-compatible field skipping: a struct field this binary doesn't
// know about is still fully consumed so decoding can resume cleanly at
// the next field.
func (d *Decoder) Skip() error {
	tag, err := d.peekTag()
	if err != nil {
		return err
	}

	switch tag {
	case TagVoid:
		d.off += 2
		return nil
	case TagU16:
		_, err := d.ReadU16()
		return err
	case TagU32:
		_, err := d.ReadU32()
		return err
	case TagU64:
		_, err := d.ReadU64()
		return err
	case TagString:
		_, err := d.ReadString()
		return err
	case TagBlob:
		_, err := d.ReadBlob()
		return err
	case TagArray:
		n, err := d.ReadArrayLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := d.Skip(); err != nil {
				return err
			}
		}
		return nil
	case TagTuple:
		n, err := d.ReadTupleLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := d.Skip(); err != nil {
				return err
			}
		}
		return nil
	case TagStruct:
		return d.ReadStructFields(func(string) error { return d.Skip() })
	case TagResultOk, TagResultErr:
		d.off += 2
		return d.Skip()
	default:
		return &DecodeError{fmt.Sprintf("unknown tag %#04x", tag)}
	}
}

// Done reports whether the decoder has consumed the entire buffer.
func (d *Decoder) Done() bool { return d.off == len(d.buf) }
