package oggfmt_test

import (
	"testing"

	"github.com/ireul-radio/ireul/internal/oggfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTrack(t *testing.T, serial uint32, packets [][]byte) *oggfmt.Track {
	t.Helper()

	b := oggfmt.NewBuilder(serial)

	var raw []byte
	granule := uint64(0)
	for _, pkt := range packets {
		granule += uint64(len(pkt))
		for _, d := range b.AddPacket(pkt, granule) {
			raw = append(raw, d.Build().Bytes()...)
		}
	}
	last := b.FlushPage(true)
	raw = append(raw, last.Build().Bytes()...)

	track, err := oggfmt.ParseTrack(raw)
	require.NoError(t, err)
	return track
}

func TestBuilderRoundTrip(t *testing.T) {
	packets := [][]byte{
		[]byte("identification-header"),
		[]byte("comment-header"),
		[]byte("some audio data payload"),
	}

	track := buildTestTrack(t, 42, packets)

	assert.True(t, track.Pages()[0].BOS())
	assert.True(t, track.Pages()[len(track.Pages())-1].EOS())
	assert.Equal(t, uint32(42), track.Serial())

	got := track.Packets()
	require.Len(t, got, len(packets))
	for i, want := range packets {
		assert.Equal(t, want, got[i])
	}
}

func TestBuilderLacesLongPacket(t *testing.T) {
	long := make([]byte, 255*3+10)
	for i := range long {
		long[i] = byte(i)
	}

	track := buildTestTrack(t, 7, [][]byte{long})

	got := track.Packets()
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0])
}

func TestBuilderLacesExactMultipleOf255(t *testing.T) {
	exact := make([]byte, 255*2)
	for i := range exact {
		exact[i] = byte(i)
	}

	track := buildTestTrack(t, 9, [][]byte{exact})

	got := track.Packets()
	require.Len(t, got, 1)
	assert.Equal(t, exact, got[0])

	// The packet's terminating segment must be the explicit zero-length
	// one, not a bare 255 — otherwise the page would look continued.
	firstPage := track.Pages()[0]
	assert.False(t, firstPage.EndsWithOpenPacket())
}

func TestParsePageRejectsBadChecksum(t *testing.T) {
	track := buildTestTrack(t, 1, [][]byte{[]byte("hello")})
	raw := append([]byte(nil), track.Bytes()...)
	raw[len(raw)-1] ^= 0xFF // corrupt the last body byte

	_, err := oggfmt.ParsePage(raw)
	assert.ErrorIs(t, err, oggfmt.ErrBadCrc)
}

func TestEditRecomputesChecksumOnce(t *testing.T) {
	track := buildTestTrack(t, 1, [][]byte{[]byte("hello")})
	page := track.Pages()[0]

	before := page.CRC()
	page.Edit().SetSerial(99).SetSequence(5).Commit()

	assert.Equal(t, uint32(99), page.Serial())
	assert.Equal(t, uint32(5), page.Sequence())
	assert.NotEqual(t, before, page.CRC())

	reparsed, err := oggfmt.ParsePage(page.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(99), reparsed.Serial())
}

func TestParsePageTooShort(t *testing.T) {
	_, err := oggfmt.ParsePage([]byte("short"))
	assert.ErrorIs(t, err, oggfmt.ErrTooShort)
}

func TestParsePageBadCapture(t *testing.T) {
	buf := make([]byte, 30)
	copy(buf, "NOPE")
	_, err := oggfmt.ParsePage(buf)
	assert.ErrorIs(t, err, oggfmt.ErrBadCapture)
}
