package protocol

import (
	"context"
	"net"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestMemcachedProbe(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		for {
			cmd, err := readLine(conn)
			if err != nil {
				return
			}
			switch cmd {
			case "version":
				conn.Write([]byte("VERSION 1.6.21\r\n"))
			case "stats":
				conn.Write([]byte("STAT curr_items 42\r\nSTAT total_connections 7\r\nEND\r\n"))
			default:
				conn.Write([]byte("ERROR\r\n"))
			}
		}
	})

	res := NewMemcachedCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Reachable || !res.Detected {
		t.Fatalf("expected reachable+detected, got %+v", res)
	}
	if res.Field("version") != "1.6.21" {
		t.Errorf("version = %v", res.Field("version"))
	}
	if res.Field("curr_items") != "42" {
		t.Errorf("curr_items = %v", res.Field("curr_items"))
	}
}

func TestMemcachedProbeNotMemcached(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		readLine(conn)
		conn.Write([]byte("ERROR\r\n"))
	})

	res := NewMemcachedCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Reachable {
		t.Fatal("expected reachable")
	}
	if res.Detected {
		t.Error("should not detect memcached")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}

func TestMemcachedProbeUnreachable(t *testing.T) {
	host, port := closedPort(t)

	res := NewMemcachedCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Reachable {
		t.Error("expected unreachable")
	}
	if res.ErrorKind != model.ErrKindTCPUnreachable {
		t.Errorf("kind = %q, want tcp_unreachable", res.ErrorKind)
	}
	if len(res.Fields) != 0 {
		t.Errorf("unreachable result must carry no fields, got %v", res.Fields)
	}
	if res.Error == "" {
		t.Error("unreachable result must carry an error")
	}
}
