// Command ireul-client is a thin CLI boundary adapter over the control
// plane: it dials a running ireul-core instance and issues exactly one
// request per invocation.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ireul-radio/ireul/internal/protocol"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ireul-client:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ireul-client <enqueue|fastforward|status|replace-fallback> [flags]")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "enqueue":
		return runEnqueue(rest, protocol.OpEnqueueTrack)
	case "replace-fallback":
		return runEnqueue(rest, protocol.OpReplaceFallback)
	case "fastforward":
		return runFastForward(rest)
	case "status":
		return runStatus(rest)
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func dial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, 5*time.Second)
}

func parseMetadata(raw string) ([]protocol.TrackMetadata, error) {
	if raw == "" {
		return nil, nil
	}
	var fields []protocol.TrackMetadata
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed metadata pair %q, expected key=value", pair)
		}
		fields = append(fields, protocol.TrackMetadata{Key: kv[0], Value: kv[1]})
	}
	return fields, nil
}

func runEnqueue(args []string, opcode protocol.Opcode) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:3001", "ireul-core control address")
	trackPath := fs.String("track", "", "path to an Ogg/Vorbis file")
	metadata := fs.String("metadata", "", "comma-separated key=value comment overrides")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *trackPath == "" {
		return fmt.Errorf("-track is required")
	}

	track, err := os.ReadFile(*trackPath)
	if err != nil {
		return fmt.Errorf("reading track file: %w", err)
	}
	fields, err := parseMetadata(*metadata)
	if err != nil {
		return err
	}

	conn, err := dial(*addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	body := protocol.EncodeEnqueueRequest(protocol.EnqueueRequest{Track: track, Metadata: fields})
	if err := protocol.WriteFrame(conn, opcode, body); err != nil {
		return err
	}

	resp, err := protocol.ReadResponseBody(conn)
	if err != nil {
		return err
	}

	if opcode == protocol.OpEnqueueTrack {
		handle, errMsg, err := protocol.DecodeU64Response(resp)
		if err != nil {
			return err
		}
		if errMsg != "" {
			return fmt.Errorf("enqueue rejected: %s", errMsg)
		}
		fmt.Println("enqueued, handle =", handle)
		return nil
	}

	errMsg, err := protocol.DecodeVoidResponse(resp)
	if err != nil {
		return err
	}
	if errMsg != "" {
		return fmt.Errorf("replace-fallback rejected: %s", errMsg)
	}
	fmt.Println("fallback replaced")
	return nil
}

func runFastForward(args []string) error {
	fs := flag.NewFlagSet("fastforward", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:3001", "ireul-core control address")
	kind := fs.Uint("kind", 0, "fast-forward kind (0 = track boundary)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := dial(*addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	body := protocol.EncodeFastForwardRequest(protocol.FastForwardRequest{Kind: uint32(*kind)})
	if err := protocol.WriteFrame(conn, protocol.OpFastForward, body); err != nil {
		return err
	}

	resp, err := protocol.ReadResponseBody(conn)
	if err != nil {
		return err
	}
	errMsg, err := protocol.DecodeVoidResponse(resp)
	if err != nil {
		return err
	}
	if errMsg != "" {
		return fmt.Errorf("fast-forward rejected: %s", errMsg)
	}
	fmt.Println("fast-forwarded")
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:3001", "ireul-core control address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := dial(*addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.OpQueueStatus, protocol.EncodeQueueStatusRequest()); err != nil {
		return err
	}

	resp, err := protocol.ReadResponseBody(conn)
	if err != nil {
		return err
	}
	status, errMsg, err := protocol.DecodeQueueStatusResponse(resp)
	if err != nil {
		return err
	}
	if errMsg != "" {
		return fmt.Errorf("status rejected: %s", errMsg)
	}

	// status.Upcoming's head element is the currently-playing track, if
	// any; there is no separate "current" field on the wire.
	rest := status.Upcoming
	if len(rest) > 0 {
		t := rest[0]
		rest = rest[1:]
		fmt.Printf("now playing: handle=%d %q — %q (%s/%s)\n",
			t.Handle, t.Title, t.Artist,
			formatSamples(t.SamplePosition, t.SampleRate),
			formatSamples(t.SampleCount, t.SampleRate))
	} else {
		fmt.Println("now playing: (fallback)")
	}

	fmt.Println("upcoming:")
	for _, t := range rest {
		fmt.Printf("  handle=%d %q — %q\n", t.Handle, t.Title, t.Artist)
	}
	fmt.Println("history:")
	for _, t := range status.History {
		fmt.Printf("  handle=%d %q — %q\n", t.Handle, t.Title, t.Artist)
	}
	return nil
}

func formatSamples(samples uint64, sampleRate uint32) string {
	if sampleRate == 0 {
		return "0s"
	}
	seconds := samples / uint64(sampleRate)
	return strconv.FormatUint(seconds, 10) + "s"
}
