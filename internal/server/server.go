// Package server wires the control-plane listener, its per-connection
// workers, and the splicer's tick loop into one supervised goroutine
// group: the concurrency shell of spec.md §4.G.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ireul-radio/ireul/internal/protocol"
	"github.com/ireul-radio/ireul/internal/queue"
	"github.com/ireul-radio/ireul/internal/splicer"
	"github.com/ireul-radio/ireul/internal/vorbis"
)

func infoToWire(info queue.Info) protocol.TrackInfoWire {
	return protocol.TrackInfoWire{
		Handle:         uint64(info.Handle),
		Artist:         info.Artist,
		Album:          info.Album,
		Title:          info.Title,
		SampleRate:     info.SampleRate,
		SampleCount:    info.SampleCount,
		SamplePosition: info.SamplePosition,
	}
}

// Server owns the control-plane listener and the splicer it dispatches
// requests against.
type Server struct {
	listener net.Listener
	splicer  *splicer.Splicer
	log      *zap.Logger
}

// New wraps an already-bound listener (so callers control the bind
// address/port, default 3001 per spec.md §4.F) and a splicer to dispatch
// requests against.
func New(listener net.Listener, s *splicer.Splicer, log *zap.Logger) *Server {
	return &Server{listener: listener, splicer: s, log: log}
}

// Run blocks until ctx is canceled or a supervised goroutine returns a
// fatal error, at which point the accept loop and tick loop are unwound
// and the listener is closed. Connection workers are not supervised: each
// one exits when its connection fails or, after cancellation, once it has
// answered the next request it reads.
func (srv *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.acceptLoop(ctx)
	})
	g.Go(func() error {
		return srv.tickLoop(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.listener.Close()
	})

	return g.Wait()
}

// acceptLoop is the listener thread: it blocks on Accept and hands each
// connection to its own worker goroutine.
func (srv *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		connID := uuid.New()
		go srv.handleConn(ctx, conn, connID)
	}
}

// handleConn is a worker thread: it reads frames from one connection,
// dispatches each under the splicer's exclusive lock, writes the
// response, and loops until disconnect or a read/write error.
func (srv *Server) handleConn(ctx context.Context, conn net.Conn, connID uuid.UUID) {
	defer conn.Close()
	log := srv.log.With(zap.String("conn_id", connID.String()), zap.String("remote", conn.RemoteAddr().String()))
	log.Info("control connection accepted")

	for {
		if ctx.Err() != nil {
			return
		}

		opcode, body, err := protocol.ReadRequest(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("control connection closed by peer")
				return
			}
			var frameErr *protocol.FrameError
			if errors.As(err, &frameErr) {
				log.Error("control connection protocol error", zap.Error(err))
				return
			}
			log.Warn("control connection read error", zap.Error(err))
			return
		}

		if opcode == protocol.OpDisconnect {
			log.Info("control connection disconnected gracefully")
			return
		}

		respBody := srv.dispatch(opcode, body, log)
		if err := protocol.WriteResponse(conn, respBody); err != nil {
			log.Warn("control connection write error", zap.Error(err))
			return
		}
	}
}

// dispatch executes one already-decoded request against the splicer and
// returns the encoded response body. It never returns an error itself:
// every failure mode becomes a Result::Err response per spec.md §4.F.
func (srv *Server) dispatch(opcode protocol.Opcode, body []byte, log *zap.Logger) []byte {
	switch opcode {
	case protocol.OpEnqueueTrack:
		return srv.dispatchEnqueue(body, log)
	case protocol.OpFastForward:
		return srv.dispatchFastForward(body, log)
	case protocol.OpQueueStatus:
		return srv.dispatchQueueStatus(body)
	case protocol.OpReplaceFallback:
		return srv.dispatchReplaceFallback(body, log)
	default:
		log.Error("unreachable opcode reached dispatch", zap.Uint32("opcode", uint32(opcode)))
		return protocol.EncodeResponseErr("unknown opcode")
	}
}

func toCommentFields(metadata []protocol.TrackMetadata) []vorbis.CommentField {
	if metadata == nil {
		return nil
	}
	fields := make([]vorbis.CommentField, len(metadata))
	for i, m := range metadata {
		fields[i] = vorbis.CommentField{Key: m.Key, Value: m.Value}
	}
	return fields
}

func (srv *Server) dispatchEnqueue(body []byte, log *zap.Logger) []byte {
	req, err := protocol.DecodeEnqueueRequest(body)
	if err != nil {
		log.Warn("malformed EnqueueTrack request", zap.Error(err))
		return protocol.EncodeResponseErr(err.Error())
	}

	h, err := srv.splicer.Enqueue(req.Track, toCommentFields(req.Metadata))
	if err != nil {
		return protocol.EncodeResponseErr(err.Error())
	}
	return protocol.EncodeEnqueueResponseOk(uint64(h))
}

func (srv *Server) dispatchFastForward(body []byte, log *zap.Logger) []byte {
	req, err := protocol.DecodeFastForwardRequest(body)
	if err != nil {
		log.Warn("malformed FastForward request", zap.Error(err))
		return protocol.EncodeResponseErr(err.Error())
	}

	if err := srv.splicer.FastForward(splicer.FastForwardKind(req.Kind)); err != nil {
		return protocol.EncodeResponseErr(err.Error())
	}
	return protocol.EncodeVoidResponseOk()
}

func (srv *Server) dispatchQueueStatus(_ []byte) []byte {
	snap := srv.splicer.Status()

	upcoming := make([]protocol.TrackInfoWire, len(snap.Upcoming))
	for i, info := range snap.Upcoming {
		upcoming[i] = infoToWire(info)
	}
	history := make([]protocol.TrackInfoWire, len(snap.History))
	for i, info := range snap.History {
		history[i] = infoToWire(info)
	}

	return protocol.EncodeQueueStatusResponseOk(protocol.QueueStatusWire{
		Upcoming: upcoming,
		History:  history,
	})
}

func (srv *Server) dispatchReplaceFallback(body []byte, log *zap.Logger) []byte {
	req, err := protocol.DecodeEnqueueRequest(body)
	if err != nil {
		log.Warn("malformed ReplaceFallback request", zap.Error(err))
		return protocol.EncodeResponseErr(err.Error())
	}

	if err := srv.splicer.ReplaceFallback(req.Track, toCommentFields(req.Metadata)); err != nil {
		return protocol.EncodeResponseErr(err.Error())
	}
	return protocol.EncodeVoidResponseOk()
}

// tickLoop is the dedicated splicer thread: acquire lock, run one tick,
// release, sleep until the deadline the tick reports.
func (srv *Server) tickLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		wait := srv.splicer.Tick(time.Now())
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
