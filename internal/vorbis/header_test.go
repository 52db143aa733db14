package vorbis_test

import (
	"testing"

	"github.com/ireul-radio/ireul/internal/vorbis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIdentificationPacket(sampleRate uint32, channels uint8) []byte {
	body := make([]byte, 0, 30)
	body = append(body, 0x01, 'v', 'o', 'r', 'b', 'i', 's')
	body = appendU32(body, 0) // version
	body = append(body, channels)
	body = appendU32(body, sampleRate)
	body = appendU32(body, 0) // bitrate max
	body = appendU32(body, 0) // bitrate nominal
	body = appendU32(body, 0) // bitrate min
	body = append(body, 0x86) // block_size_0=6, block_size_1=8
	body = append(body, 0x01) // framing bit set
	return body
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func TestParseIdentification(t *testing.T) {
	pkt := buildIdentificationPacket(48000, 2)
	h, err := vorbis.ParseIdentification(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), h.SampleRate)
	assert.Equal(t, uint8(2), h.Channels)
	assert.Equal(t, uint8(6), h.BlockSize0)
	assert.Equal(t, uint8(8), h.BlockSize1)
}

func TestParseIdentificationBadBlockSizes(t *testing.T) {
	pkt := buildIdentificationPacket(48000, 2)
	pkt[len(pkt)-2] = 0x68 // block_size_0=8, block_size_1=6 -> reversed, invalid
	_, err := vorbis.ParseIdentification(pkt)
	assert.ErrorIs(t, err, vorbis.ErrBadBlockSizes)
}

func TestParseIdentificationBadFraming(t *testing.T) {
	pkt := buildIdentificationPacket(48000, 2)
	pkt[len(pkt)-1] = 0x00
	_, err := vorbis.ParseIdentification(pkt)
	assert.ErrorIs(t, err, vorbis.ErrBadFramingBit)
}

func TestCommentsRoundTrip(t *testing.T) {
	c := &vorbis.Comments{
		Vendor: "Ireul Core",
		Comments: []vorbis.CommentField{
			{Key: "ARTIST", Value: "Test Artist"},
			{Key: "title", Value: "Test Title"},
		},
	}

	packet := c.Build()
	parsed, err := vorbis.ParseComments(packet)
	require.NoError(t, err)
	assert.Equal(t, "Ireul Core", parsed.Vendor)
	require.Len(t, parsed.Comments, 2)

	title, ok := parsed.Get("Title")
	require.True(t, ok)
	assert.Equal(t, "Test Title", title)

	artist, ok := parsed.Get("artist")
	require.True(t, ok)
	assert.Equal(t, "Test Artist", artist)

	_, ok = parsed.Get("album")
	assert.False(t, ok)
}

func TestParseCommentsMalformedEntry(t *testing.T) {
	c := &vorbis.Comments{Vendor: "x", Comments: []vorbis.CommentField{{Key: "k", Value: "v"}}}
	packet := c.Build()

	// Corrupt the single entry to remove its '=' separator.
	idx := len(packet) - 1 - len("k=v")
	copy(packet[idx:], []byte("kxv"))

	_, err := vorbis.ParseComments(packet)
	assert.ErrorIs(t, err, vorbis.ErrMalformedComment)
}

func TestParseCommentsTruncated(t *testing.T) {
	_, err := vorbis.ParseComments([]byte{0x03, 'v', 'o', 'r', 'b', 'i', 's'})
	assert.ErrorIs(t, err, vorbis.ErrTruncated)
}

func TestIsIdentificationCommentSetup(t *testing.T) {
	assert.True(t, vorbis.IsIdentification([]byte{0x01, 'v', 'o', 'r', 'b', 'i', 's'}))
	assert.True(t, vorbis.IsComment([]byte{0x03, 'v', 'o', 'r', 'b', 'i', 's'}))
	assert.True(t, vorbis.IsSetup([]byte{0x05, 'v', 'o', 'r', 'b', 'i', 's'}))
	assert.False(t, vorbis.IsIdentification([]byte{0x09, 'a', 'u', 'd', 'i', 'o'}))
}
