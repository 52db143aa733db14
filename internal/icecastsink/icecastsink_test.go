package icecastsink_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ireul-radio/ireul/internal/icecastsink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptOneHandshake(t *testing.T, ln net.Listener) chan []string {
	lines := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(lines)
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		var got []string
		for {
			line, err := r.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if line == "" || err != nil {
				break
			}
			got = append(got, line)
		}
		lines <- got
	}()
	return lines
}

func TestDialSendsSourceHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := acceptOneHandshake(t, ln)

	url := "http://user:pass@" + ln.Addr().String() + "/mount"
	sink, err := icecastsink.Dial(url, icecastsink.Metadata{
		Name:  "Ireul Radio",
		Genre: "electronic",
	}, zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	select {
	case got := <-lines:
		require.NotEmpty(t, got)
		assert.Equal(t, "SOURCE /mount HTTP/1.0", got[0])
		assert.Contains(t, got, "Authorization: Basic dXNlcjpwYXNz")
		assert.Contains(t, got, "Ice-Name: Ireul Radio")
		assert.Contains(t, got, "Ice-Genre: electronic")
		assert.Contains(t, got, "Content-Type: audio/ogg")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}

func TestSendPageAfterCloseFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		bufio.NewReader(conn).ReadString('\n')
	}()

	sink, err := icecastsink.Dial("http://"+ln.Addr().String()+"/mount", icecastsink.Metadata{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	err = sink.SendPage([]byte("page"))
	assert.Error(t, err)
}
