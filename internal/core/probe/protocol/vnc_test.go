package protocol

import (
	"context"
	"io"
	"net"
	"reflect"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestVNCProbeNoneAuth(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("RFB 003.008\n"))
		echo := make([]byte, 12)
		if _, err := io.ReadFull(conn, echo); err != nil {
			return
		}
		// RFB 3.8: count=2, types none + vnc auth
		conn.Write([]byte{0x02, 0x01, 0x02})
	})

	res := NewVNCCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("rfb_version") != "RFB 003.008" {
		t.Errorf("rfb_version = %v", res.Field("rfb_version"))
	}
	if got := res.Field("security_types"); !reflect.DeepEqual(got, []string{"none", "vnc_authentication"}) {
		t.Errorf("security_types = %v", got)
	}
	if res.Field("no_auth_supported") != true {
		t.Errorf("no_auth_supported = %v", res.Field("no_auth_supported"))
	}
}

func TestVNCProbeAuthOnly(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("RFB 003.008\n"))
		echo := make([]byte, 12)
		if _, err := io.ReadFull(conn, echo); err != nil {
			return
		}
		conn.Write([]byte{0x01, 0x02})
	})

	res := NewVNCCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatal("expected detected")
	}
	if res.Field("no_auth_supported") != false {
		t.Errorf("no_auth_supported = %v", res.Field("no_auth_supported"))
	}
}

func TestVNCProbeTruncatedHandshake(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("RFB 003.008\n"))
		echo := make([]byte, 12)
		io.ReadFull(conn, echo)
		// 版本协商后直接断开，不发安全类型
	})

	res := NewVNCCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("version exchange completed, expected detected, error=%q", res.Error)
	}
	if res.Field("rfb_version") != "RFB 003.008" {
		t.Errorf("rfb_version = %v", res.Field("rfb_version"))
	}
	if res.Field("handshake_incomplete") == nil {
		t.Error("truncated exchange must record handshake_incomplete")
	}
	if res.Field("security_types") != nil {
		t.Errorf("security_types = %v, must be absent on truncation", res.Field("security_types"))
	}
}

func TestVNCProbeNotVNC(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.1 400 x\r\n\r\n"))
	})

	res := NewVNCCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("http response should not detect vnc")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
