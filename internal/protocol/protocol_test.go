package protocol_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ireul-radio/ireul/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrame(buf *bytes.Buffer, version byte, opcode protocol.Opcode, body []byte) {
	buf.WriteByte(version)
	var opBuf [4]byte
	binary.BigEndian.PutUint32(opBuf[:], uint32(opcode))
	buf.Write(opBuf[:])
	if opcode == protocol.OpDisconnect {
		return
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
}

func TestReadRequestDisconnectHasNoBody(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, protocol.ProtocolVersion, protocol.OpDisconnect, nil)

	op, body, err := protocol.ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpDisconnect, op)
	assert.Nil(t, body)
}

func TestReadRequestRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, 7, protocol.OpQueueStatus, protocol.EncodeQueueStatusRequest())

	_, _, err := protocol.ReadRequest(&buf)
	require.Error(t, err)
	var frameErr *protocol.FrameError
	assert.ErrorAs(t, err, &frameErr)
}

func TestReadRequestRejectsUnknownOpcode(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, protocol.ProtocolVersion, protocol.Opcode(0xDEAD), []byte("x"))

	_, _, err := protocol.ReadRequest(&buf)
	require.Error(t, err)
}

func TestReadRequestRejectsOversizeFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(protocol.ProtocolVersion)
	var opBuf [4]byte
	binary.BigEndian.PutUint32(opBuf[:], uint32(protocol.OpEnqueueTrack))
	buf.Write(opBuf[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], protocol.MaxFrameSize+1)
	buf.Write(lenBuf[:])

	_, _, err := protocol.ReadRequest(&buf)
	require.Error(t, err)
	var frameErr *protocol.FrameError
	assert.ErrorAs(t, err, &frameErr)
}

func TestWriteResponseRejectsOversizeBody(t *testing.T) {
	var buf bytes.Buffer
	err := protocol.WriteResponse(&buf, make([]byte, protocol.MaxFrameSize+1))
	require.Error(t, err)
}

func TestEnqueueRequestRoundTrip(t *testing.T) {
	req := protocol.EnqueueRequest{
		Track: []byte("ogg-bytes-here"),
		Metadata: []protocol.TrackMetadata{
			{Key: "artist", Value: "Aphex Twin"},
			{Key: "title", Value: "Windowlicker"},
		},
	}
	body := protocol.EncodeEnqueueRequest(req)

	decoded, err := protocol.DecodeEnqueueRequest(body)
	require.NoError(t, err)
	assert.Equal(t, req.Track, decoded.Track)
	assert.Equal(t, req.Metadata, decoded.Metadata)
}

func TestEnqueueRequestRoundTripWithoutMetadata(t *testing.T) {
	req := protocol.EnqueueRequest{Track: []byte("ogg-bytes")}
	body := protocol.EncodeEnqueueRequest(req)

	decoded, err := protocol.DecodeEnqueueRequest(body)
	require.NoError(t, err)
	assert.Equal(t, req.Track, decoded.Track)
	assert.Nil(t, decoded.Metadata)
}

func TestU64ResponseRoundTrip(t *testing.T) {
	ok := protocol.EncodeEnqueueResponseOk(42)
	v, errMsg, err := protocol.DecodeU64Response(ok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
	assert.Empty(t, errMsg)

	failed := protocol.EncodeResponseErr("queue is full")
	_, errMsg, err = protocol.DecodeU64Response(failed)
	require.NoError(t, err)
	assert.Equal(t, "queue is full", errMsg)
}

func TestFastForwardRequestRoundTrip(t *testing.T) {
	body := protocol.EncodeFastForwardRequest(protocol.FastForwardRequest{Kind: 3})
	decoded, err := protocol.DecodeFastForwardRequest(body)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), decoded.Kind)
}

func TestVoidResponseRoundTrip(t *testing.T) {
	ok := protocol.EncodeVoidResponseOk()
	errMsg, err := protocol.DecodeVoidResponse(ok)
	require.NoError(t, err)
	assert.Empty(t, errMsg)

	failed := protocol.EncodeResponseErr("no such handle")
	errMsg, err = protocol.DecodeVoidResponse(failed)
	require.NoError(t, err)
	assert.Equal(t, "no such handle", errMsg)
}

func TestQueueStatusResponseRoundTrip(t *testing.T) {
	status := protocol.QueueStatusWire{
		Upcoming: []protocol.TrackInfoWire{
			{
				Handle: 1, Artist: "A", Album: "Al", Title: "T",
				SampleRate: 48000, SampleCount: 1000, SamplePosition: 500,
			},
			{Handle: 2, Artist: "B", Title: "U1", SampleRate: 48000, SampleCount: 2000},
		},
		History: []protocol.TrackInfoWire{
			{Handle: 3, Artist: "C", Title: "H1", SampleRate: 48000, SampleCount: 3000},
		},
	}
	body := protocol.EncodeQueueStatusResponseOk(status)

	decoded, errMsg, err := protocol.DecodeQueueStatusResponse(body)
	require.NoError(t, err)
	assert.Empty(t, errMsg)
	require.Len(t, decoded.Upcoming, 2)
	assert.Equal(t, "T", decoded.Upcoming[0].Title)
	assert.Equal(t, "U1", decoded.Upcoming[1].Title)
	require.Len(t, decoded.History, 1)
	assert.Equal(t, "H1", decoded.History[0].Title)
}

func TestQueueStatusResponseEmpty(t *testing.T) {
	body := protocol.EncodeQueueStatusResponseOk(protocol.QueueStatusWire{})
	decoded, _, err := protocol.DecodeQueueStatusResponse(body)
	require.NoError(t, err)
	assert.Empty(t, decoded.Upcoming)
	assert.Empty(t, decoded.History)
}

// TestStructSkipsUnknownFields is the forward-compatibility contract:
// a decoder built against an older field set must still parse a struct
// that carries an extra trailing field it has never heard of.
func TestStructSkipsUnknownFields(t *testing.T) {
	e := protocol.NewEncoder()
	e.WriteStruct(
		protocol.StructField{Name: "kind", Write: func(e *protocol.Encoder) { e.WriteU32(1) }},
		protocol.StructField{Name: "future_nested", Write: func(e *protocol.Encoder) {
			e.WriteStruct(
				protocol.StructField{Name: "x", Write: func(e *protocol.Encoder) { e.WriteU16(9) }},
				protocol.StructField{Name: "y", Write: func(e *protocol.Encoder) {
					e.WriteArray(2, func(i int) { e.WriteString("z") })
				}},
			)
		}},
	)

	req, err := protocol.DecodeFastForwardRequest(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), req.Kind)
}

func TestWriteFrameReadRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := protocol.EncodeFastForwardRequest(protocol.FastForwardRequest{Kind: 5})
	require.NoError(t, protocol.WriteFrame(&buf, protocol.OpFastForward, body))

	op, gotBody, err := protocol.ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpFastForward, op)
	assert.Equal(t, body, gotBody)
}

func TestWriteResponseReadResponseBodyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := protocol.EncodeVoidResponseOk()
	require.NoError(t, protocol.WriteResponse(&buf, body))

	got, err := protocol.ReadResponseBody(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestDecoderDoneAfterFullConsumption(t *testing.T) {
	d := protocol.NewDecoder(protocol.EncodeQueueStatusRequest())
	require.NoError(t, d.ReadStructFields(func(name string) error { return d.Skip() }))
	assert.True(t, d.Done())
}
