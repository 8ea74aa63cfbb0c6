package protocol

import (
	"context"
	"net"
	"reflect"
	"strings"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestSMTPProbe(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("220 mail.example.com ESMTP Postfix\r\n"))
		for {
			cmd, err := readLine(conn)
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				conn.Write([]byte("250-mail.example.com\r\n250-STARTTLS\r\n250-AUTH PLAIN LOGIN\r\n250 8BITMIME\r\n"))
			case strings.HasPrefix(cmd, "VRFY"):
				conn.Write([]byte("252 2.0.0 root\r\n"))
			case strings.HasPrefix(cmd, "EXPN"):
				conn.Write([]byte("502 5.5.1 command not implemented\r\n"))
			case cmd == "QUIT":
				conn.Write([]byte("221 bye\r\n"))
				return
			default:
				conn.Write([]byte("500 unrecognized\r\n"))
			}
		}
	})

	res := NewSMTPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if banner, _ := res.Field("banner").(string); !strings.Contains(banner, "Postfix") {
		t.Errorf("banner = %v", res.Field("banner"))
	}
	if res.Field("starttls") != true {
		t.Errorf("starttls = %v", res.Field("starttls"))
	}
	if got := res.Field("auth_mechanisms"); !reflect.DeepEqual(got, []string{"PLAIN", "LOGIN"}) {
		t.Errorf("auth_mechanisms = %v", got)
	}
	if res.Field("vrfy_enabled") != true {
		t.Errorf("vrfy_enabled = %v", res.Field("vrfy_enabled"))
	}
	if res.Field("expn_enabled") != false {
		t.Errorf("expn_enabled = %v", res.Field("expn_enabled"))
	}
}

func TestSMTPProbeNotSMTP(t *testing.T) {
	host, port := startFakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("SSH-2.0-OpenSSH_9.3\r\n"))
	})

	res := NewSMTPCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("ssh banner should not detect smtp")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
