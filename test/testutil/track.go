// Package testutil builds fixture Ogg/Vorbis tracks for tests across
// internal/queue, internal/splicer, and internal/server, the way
// whatomate's test/testutil builds fixture organizations and users.
package testutil

import (
	"testing"

	"github.com/ireul-radio/ireul/internal/oggfmt"
	"github.com/ireul-radio/ireul/internal/vorbis"
)

// TrackOption customizes BuildTrack's output.
type TrackOption func(*trackSpec)

type trackSpec struct {
	serial     uint32
	sampleRate uint32
	artist     string
	title      string
	album      string
	audio      []byte
}

func WithSerial(serial uint32) TrackOption {
	return func(s *trackSpec) { s.serial = serial }
}

func WithAlbum(album string) TrackOption {
	return func(s *trackSpec) { s.album = album }
}

func WithAudioPayload(payload []byte) TrackOption {
	return func(s *trackSpec) { s.audio = payload }
}

// BuildTrack assembles a minimal, fully valid Ogg/Vorbis track: an
// identification page, a comment page, a setup page, and one audio page
// whose granule position is past zero, all under one serial.
func BuildTrack(t *testing.T, sampleRate uint32, artist, title string, opts ...TrackOption) []byte {
	t.Helper()

	spec := &trackSpec{
		serial:     1,
		sampleRate: sampleRate,
		artist:     artist,
		title:      title,
		audio:      []byte("audio-packet-payload"),
	}
	for _, opt := range opts {
		opt(spec)
	}

	b := oggfmt.NewBuilder(spec.serial)
	var raw []byte

	flushTo := func(eos bool) {
		raw = append(raw, b.FlushPage(eos).Build().Bytes()...)
	}

	for _, d := range b.AddPacket(identificationPacket(spec.sampleRate), 0) {
		raw = append(raw, d.Build().Bytes()...)
	}
	flushTo(false)

	comments := &vorbis.Comments{
		Vendor: "testutil encoder",
		Comments: []vorbis.CommentField{
			{Key: "artist", Value: spec.artist},
			{Key: "title", Value: spec.title},
		},
	}
	if spec.album != "" {
		comments.Comments = append(comments.Comments, vorbis.CommentField{Key: "album", Value: spec.album})
	}
	for _, d := range b.AddPacket(comments.Build(), 0) {
		raw = append(raw, d.Build().Bytes()...)
	}
	flushTo(false)

	setupPacket := append([]byte{0x05, 'v', 'o', 'r', 'b', 'i', 's'}, []byte("setup-data")...)
	for _, d := range b.AddPacket(setupPacket, 0) {
		raw = append(raw, d.Build().Bytes()...)
	}
	flushTo(false)

	for _, d := range b.AddPacket(spec.audio, uint64(len(spec.audio))) {
		raw = append(raw, d.Build().Bytes()...)
	}
	flushTo(true)

	return raw
}

func identificationPacket(sampleRate uint32) []byte {
	body := make([]byte, 0, 30)
	body = append(body, 0x01, 'v', 'o', 'r', 'b', 'i', 's')
	body = appendU32(body, 0)
	body = append(body, 2) // channels
	body = appendU32(body, sampleRate)
	body = appendU32(body, 0)
	body = appendU32(body, 0)
	body = appendU32(body, 0)
	body = append(body, 0x86) // block_size_0=6, block_size_1=8
	body = append(body, 0x01) // framing bit
	return body
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
