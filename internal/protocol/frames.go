package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Opcode identifies a control-plane request.
type Opcode uint32

const (
	OpDisconnect      Opcode = 0
	OpEnqueueTrack    Opcode = 0x1000
	OpFastForward     Opcode = 0x1001
	OpQueueStatus     Opcode = 0x1002
	OpReplaceFallback Opcode = 0x1003
)

// ProtocolVersion is the only wire version this server understands.
const ProtocolVersion = 0

// MaxFrameSize bounds any single frame body, request or response.
const MaxFrameSize = 20 * 1024 * 1024

// FrameError reports a malformed request frame; the connection handling
// it must be closed rather than answered.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string { return "protocol: " + e.Reason }

// ReadRequest reads one `version(u8) | opcode(u32 BE) | frame_len(u32 BE)
// | body[frame_len]` frame. Opcode 0 (graceful disconnect) is followed by
// neither a frame_len nor a body, and this returns (OpDisconnect, nil, nil).
func ReadRequest(r io.Reader) (Opcode, []byte, error) {
	var head [9]byte
	if _, err := io.ReadFull(r, head[:1]); err != nil {
		return 0, nil, err
	}
	if head[0] != ProtocolVersion {
		return 0, nil, &FrameError{fmt.Sprintf("unsupported protocol version %d", head[0])}
	}

	if _, err := io.ReadFull(r, head[1:5]); err != nil {
		return 0, nil, err
	}
	opcode := Opcode(binary.BigEndian.Uint32(head[1:5]))
	if opcode == OpDisconnect {
		return OpDisconnect, nil, nil
	}

	if _, err := io.ReadFull(r, head[5:9]); err != nil {
		return 0, nil, err
	}
	frameLen := binary.BigEndian.Uint32(head[5:9])
	if frameLen > MaxFrameSize {
		return 0, nil, &FrameError{fmt.Sprintf("frame length %d exceeds limit", frameLen)}
	}

	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}

	switch opcode {
	case OpEnqueueTrack, OpFastForward, OpQueueStatus, OpReplaceFallback:
		return opcode, body, nil
	default:
		return 0, nil, &FrameError{fmt.Sprintf("unknown opcode %#x", uint32(opcode))}
	}
}

// WriteResponse writes `resp_len(u32 BE) | body[resp_len]`.
func WriteResponse(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return &FrameError{fmt.Sprintf("response length %d exceeds limit", len(body))}
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// WriteFrame writes one client request frame: `version(u8) | opcode(u32
// BE) | frame_len(u32 BE) | body[frame_len]`. Used by control-plane
// clients; the server side reads frames via ReadRequest.
func WriteFrame(w io.Writer, opcode Opcode, body []byte) error {
	if len(body) > MaxFrameSize {
		return &FrameError{fmt.Sprintf("frame length %d exceeds limit", len(body))}
	}
	var head [9]byte
	head[0] = ProtocolVersion
	binary.BigEndian.PutUint32(head[1:5], uint32(opcode))
	binary.BigEndian.PutUint32(head[5:9], uint32(len(body)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadResponseBody reads one `resp_len(u32 BE) | body[resp_len]`
// response as written by WriteResponse.
func ReadResponseBody(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	respLen := binary.BigEndian.Uint32(lenBuf[:])
	if respLen > MaxFrameSize {
		return nil, &FrameError{fmt.Sprintf("response length %d exceeds limit", respLen)}
	}
	body := make([]byte, respLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
