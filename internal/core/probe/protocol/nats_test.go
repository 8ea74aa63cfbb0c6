package protocol

import (
	"context"
	"net"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestNATSProbe(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte(`INFO {"server_name":"nats-1","version":"2.10.7","auth_required":false,"jetstream":true,"max_payload":1048576}` + "\r\n"))
		if cmd, err := readLine(conn); err == nil && cmd == "PING" {
			conn.Write([]byte("PONG\r\n"))
		}
	})

	res := NewNATSCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("version") != "2.10.7" {
		t.Errorf("version = %v", res.Field("version"))
	}
	if res.Field("auth_required") != false {
		t.Errorf("auth_required = %v", res.Field("auth_required"))
	}
	if res.Field("jetstream") != true {
		t.Errorf("jetstream = %v", res.Field("jetstream"))
	}
	if res.Field("pong_received") != true {
		t.Errorf("pong_received = %v", res.Field("pong_received"))
	}
}

func TestNATSProbeNotNATS(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("SSH-2.0-OpenSSH_9.3\r\n"))
	})

	res := NewNATSCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("ssh banner should not detect nats")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
