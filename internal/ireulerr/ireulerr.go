// Package ireulerr collects the sentinel errors shared across Ireul's
// queue, splicer, and protocol layers, so a caller anywhere in the stack
// can errors.Is against one taxonomy instead of each package inventing
// its own.
package ireulerr

import "errors"

var (
	// ErrInvalidTrack covers codec failure, CRC mismatch, non-monotonic
	// granule positions, or missing Vorbis identification/comment headers.
	ErrInvalidTrack = errors.New("ireul: invalid track")

	// ErrBadSampleRate is returned when a track's Vorbis identification
	// sample rate does not match the splicer's configured rate.
	ErrBadSampleRate = errors.New("ireul: sample rate mismatch")

	// ErrFull is returned when the play queue or the handle allocator's
	// live set is at capacity.
	ErrFull = errors.New("ireul: at capacity")

	// ErrUnknownHandle is returned when a handle does not name a live
	// queue entry.
	ErrUnknownHandle = errors.New("ireul: unknown handle")
)
