package protocol

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestAJPProbeCPong(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 5)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		if bytes.Equal(buf, []byte{0x12, 0x34, 0x00, 0x01, 0x0A}) {
			conn.Write([]byte{0x41, 0x42, 0x00, 0x01, 0x09})
		}
	})

	res := NewAJPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("cpong_received") != true {
		t.Errorf("cpong_received = %v", res.Field("cpong_received"))
	}
}

func TestAJPProbeNotAJP(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 5)
		io.ReadFull(conn, buf)
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n"))
	})

	res := NewAJPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("http response should not detect ajp")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
