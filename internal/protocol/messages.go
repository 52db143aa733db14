package protocol

// TrackMetadata is one (key, value) comment override pair carried on an
// EnqueueTrack or ReplaceFallback request.
type TrackMetadata struct {
	Key   string
	Value string
}

// EnqueueRequest is the decoded body of an EnqueueTrack or
// ReplaceFallback request: `{ track: blob, metadata?: [(str,str)] }`.
type EnqueueRequest struct {
	Track    []byte
	Metadata []TrackMetadata // nil means the field was absent
}

// EncodeEnqueueRequest serializes r as the struct wire format shared by
// EnqueueTrack and ReplaceFallback.
func EncodeEnqueueRequest(r EnqueueRequest) []byte {
	e := NewEncoder()
	fields := []StructField{
		{Name: "track", Write: func(e *Encoder) { e.WriteBlob(r.Track) }},
	}
	if r.Metadata != nil {
		fields = append(fields, StructField{
			Name: "metadata",
			Write: func(e *Encoder) {
				e.WriteArray(len(r.Metadata), func(i int) {
					m := r.Metadata[i]
					e.WriteTuple(
						func() { e.WriteString(m.Key) },
						func() { e.WriteString(m.Value) },
					)
				})
			},
		})
	}
	e.WriteStruct(fields...)
	return e.Bytes()
}

// DecodeEnqueueRequest parses body as an EnqueueRequest, tolerating and
// skipping any struct fields it doesn't recognize.
func DecodeEnqueueRequest(body []byte) (EnqueueRequest, error) {
	d := NewDecoder(body)
	var req EnqueueRequest

	err := d.ReadStructFields(func(name string) error {
		switch name {
		case "track":
			track, err := d.ReadBlob()
			if err != nil {
				return err
			}
			req.Track = track
			return nil
		case "metadata":
			n, err := d.ReadArrayLen()
			if err != nil {
				return err
			}
			req.Metadata = make([]TrackMetadata, 0, n)
			for i := 0; i < n; i++ {
				tupleLen, err := d.ReadTupleLen()
				if err != nil {
					return err
				}
				if tupleLen != 2 {
					return &DecodeError{"metadata tuple must have 2 elements"}
				}
				key, err := d.ReadString()
				if err != nil {
					return err
				}
				value, err := d.ReadString()
				if err != nil {
					return err
				}
				req.Metadata = append(req.Metadata, TrackMetadata{Key: key, Value: value})
			}
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return EnqueueRequest{}, err
	}
	return req, nil
}

// EncodeEnqueueResponseOk encodes a successful EnqueueTrack response.
func EncodeEnqueueResponseOk(handle uint64) []byte {
	e := NewEncoder()
	e.WriteResultOk(func(e *Encoder) { e.WriteU64(handle) })
	return e.Bytes()
}

// EncodeResponseErr encodes any of the four opcodes' error response:
// Result::Err carrying a human-readable message. Used for every failed
// EnqueueTrack/FastForward/QueueStatus/ReplaceFallback response.
func EncodeResponseErr(message string) []byte {
	e := NewEncoder()
	e.WriteResultErr(message)
	return e.Bytes()
}

// DecodeU64Response decodes a Result<u64, string> response body, as
// returned by EnqueueTrack.
func DecodeU64Response(body []byte) (value uint64, errMsg string, err error) {
	d := NewDecoder(body)
	tag, err := d.peekTag()
	if err != nil {
		return 0, "", err
	}
	switch tag {
	case TagResultOk:
		d.off += 2
		v, err := d.ReadU64()
		return v, "", err
	case TagResultErr:
		d.off += 2
		msg, err := d.ReadString()
		return 0, msg, err
	default:
		return 0, "", &DecodeError{"expected a Result tag"}
	}
}

// FastForwardRequest is the decoded body of a FastForward request:
// `{ kind: u32 enum }`.
type FastForwardRequest struct {
	Kind uint32
}

func EncodeFastForwardRequest(r FastForwardRequest) []byte {
	e := NewEncoder()
	e.WriteStruct(StructField{Name: "kind", Write: func(e *Encoder) { e.WriteU32(r.Kind) }})
	return e.Bytes()
}

func DecodeFastForwardRequest(body []byte) (FastForwardRequest, error) {
	d := NewDecoder(body)
	var req FastForwardRequest
	err := d.ReadStructFields(func(name string) error {
		if name == "kind" {
			k, err := d.ReadU32()
			if err != nil {
				return err
			}
			req.Kind = k
			return nil
		}
		return d.Skip()
	})
	return req, err
}

// EncodeVoidResponseOk encodes a successful FastForward or
// ReplaceFallback response: Result<(), string>.
func EncodeVoidResponseOk() []byte {
	e := NewEncoder()
	e.WriteResultOk(func(e *Encoder) { e.WriteVoid() })
	return e.Bytes()
}

// DecodeVoidResponse decodes a Result<(), string> response body.
func DecodeVoidResponse(body []byte) (errMsg string, err error) {
	d := NewDecoder(body)
	tag, err := d.peekTag()
	if err != nil {
		return "", err
	}
	switch tag {
	case TagResultOk:
		d.off += 2
		return "", d.Skip()
	case TagResultErr:
		d.off += 2
		msg, err := d.ReadString()
		return msg, err
	default:
		return "", &DecodeError{"expected a Result tag"}
	}
}

// TrackInfoWire is the struct shape used for both the currently-playing
// entry and upcoming/history entries in a QueueStatus response.
type TrackInfoWire struct {
	Handle         uint64
	Artist         string
	Album          string
	Title          string
	SampleRate     uint32
	SampleCount    uint64
	SamplePosition uint64
}

func writeTrackInfo(e *Encoder, info TrackInfoWire) {
	e.WriteStruct(
		StructField{Name: "handle", Write: func(e *Encoder) { e.WriteU64(info.Handle) }},
		StructField{Name: "artist", Write: func(e *Encoder) { e.WriteString(info.Artist) }},
		StructField{Name: "album", Write: func(e *Encoder) { e.WriteString(info.Album) }},
		StructField{Name: "title", Write: func(e *Encoder) { e.WriteString(info.Title) }},
		StructField{Name: "sample_rate", Write: func(e *Encoder) { e.WriteU32(info.SampleRate) }},
		StructField{Name: "sample_count", Write: func(e *Encoder) { e.WriteU64(info.SampleCount) }},
		StructField{Name: "sample_position", Write: func(e *Encoder) { e.WriteU64(info.SamplePosition) }},
	)
}

func readTrackInfo(d *Decoder) (TrackInfoWire, error) {
	var info TrackInfoWire
	err := d.ReadStructFields(func(name string) error {
		switch name {
		case "handle":
			v, err := d.ReadU64()
			info.Handle = v
			return err
		case "artist":
			v, err := d.ReadString()
			info.Artist = v
			return err
		case "album":
			v, err := d.ReadString()
			info.Album = v
			return err
		case "title":
			v, err := d.ReadString()
			info.Title = v
			return err
		case "sample_rate":
			v, err := d.ReadU32()
			info.SampleRate = v
			return err
		case "sample_count":
			v, err := d.ReadU64()
			info.SampleCount = v
			return err
		case "sample_position":
			v, err := d.ReadU64()
			info.SamplePosition = v
			return err
		default:
			return d.Skip()
		}
	})
	return info, err
}

// QueueStatusWire is the struct shape of a successful QueueStatus
// response: `{ upcoming: [track], history: [track] }`. The
// currently-playing track, if any, is the head element of Upcoming —
// there is no separate "current" field.
type QueueStatusWire struct {
	Upcoming []TrackInfoWire
	History  []TrackInfoWire
}

func EncodeQueueStatusResponseOk(status QueueStatusWire) []byte {
	e := NewEncoder()
	e.WriteResultOk(func(e *Encoder) {
		e.WriteStruct(
			StructField{Name: "upcoming", Write: func(e *Encoder) {
				e.WriteArray(len(status.Upcoming), func(i int) { writeTrackInfo(e, status.Upcoming[i]) })
			}},
			StructField{Name: "history", Write: func(e *Encoder) {
				e.WriteArray(len(status.History), func(i int) { writeTrackInfo(e, status.History[i]) })
			}},
		)
	})
	return e.Bytes()
}

// DecodeQueueStatusResponse decodes a Result<Queue, string> response
// body.
func DecodeQueueStatusResponse(body []byte) (QueueStatusWire, string, error) {
	d := NewDecoder(body)
	tag, err := d.peekTag()
	if err != nil {
		return QueueStatusWire{}, "", err
	}
	if tag == TagResultErr {
		d.off += 2
		msg, err := d.ReadString()
		return QueueStatusWire{}, msg, err
	}
	if tag != TagResultOk {
		return QueueStatusWire{}, "", &DecodeError{"expected a Result tag"}
	}
	d.off += 2

	var status QueueStatusWire
	err = d.ReadStructFields(func(name string) error {
		switch name {
		case "upcoming":
			n, err := d.ReadArrayLen()
			if err != nil {
				return err
			}
			status.Upcoming = make([]TrackInfoWire, n)
			for i := 0; i < n; i++ {
				info, err := readTrackInfo(d)
				if err != nil {
					return err
				}
				status.Upcoming[i] = info
			}
			return nil
		case "history":
			n, err := d.ReadArrayLen()
			if err != nil {
				return err
			}
			status.History = make([]TrackInfoWire, n)
			for i := 0; i < n; i++ {
				info, err := readTrackInfo(d)
				if err != nil {
					return err
				}
				status.History[i] = info
			}
			return nil
		default:
			return d.Skip()
		}
	})
	return status, "", err
}

// EncodeQueueStatusRequest encodes the empty-struct QueueStatus request
// body.
func EncodeQueueStatusRequest() []byte {
	e := NewEncoder()
	e.WriteStruct()
	return e.Bytes()
}
