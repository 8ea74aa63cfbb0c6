package protocol

import (
	"context"
	"io"
	"net"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestJDWPProbeHandshake(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 14)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		conn.Write(buf) // JVM 原样回显
	})

	res := NewJDWPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("debugger_exposed") != true {
		t.Errorf("debugger_exposed = %v", res.Field("debugger_exposed"))
	}
}

func TestJDWPProbeEchoMismatch(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 14)
		io.ReadFull(conn, buf)
		conn.Write([]byte("NOT-A-JVM-HERE"))
	})

	res := NewJDWPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("mismatched echo should not detect jdwp")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
