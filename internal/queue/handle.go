package queue

import (
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"github.com/ireul-radio/ireul/internal/ireulerr"
)

// Handle is an opaque identifier for a queued or recently-played track.
// Handles are drawn from a CSPRNG rather than a counter so a client
// cannot usefully guess a live handle it wasn't given.
type Handle uint64

// handleAllocator draws 64-bit handles from a ChaCha20 keystream seeded
// from the OS RNG, checking each draw against a bounded live set before
// handing it out. This is the Go analogue of a ChaCha20-backed CSPRNG
// handle pool: same cipher family, keystream bytes read off instead of
// an RNG trait's next_u64.
type handleAllocator struct {
	stream   *chacha20.Cipher
	live     map[Handle]struct{}
	capacity int
}

func newHandleAllocator(capacity int) (*handleAllocator, error) {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &handleAllocator{
		stream:   stream,
		live:     make(map[Handle]struct{}),
		capacity: capacity,
	}, nil
}

// allocate draws handles from the keystream until it finds one that is
// both nonzero (handle 0 is reserved for the fallback track) and not
// already live, then reserves it.
func (a *handleAllocator) allocate() (Handle, error) {
	if len(a.live) >= a.capacity {
		return 0, ireulerr.ErrFull
	}

	var zero, out [8]byte
	for {
		a.stream.XORKeyStream(out[:], zero[:])
		h := Handle(binary.LittleEndian.Uint64(out[:]))
		if h == 0 {
			continue
		}
		if _, taken := a.live[h]; taken {
			continue
		}
		a.live[h] = struct{}{}
		return h, nil
	}
}

// dispose releases a handle back to the allocator. It is an error to
// dispose a handle that is not currently live.
func (a *handleAllocator) dispose(h Handle) error {
	if _, ok := a.live[h]; !ok {
		return ireulerr.ErrUnknownHandle
	}
	delete(a.live, h)
	return nil
}
