package protocol

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// startHTTPServer 启动假 HTTP 服务并返回 host, port
func startHTTPServer(t *testing.T, handler http.Handler) (string, int) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestDockerProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Version":"24.0.7","ApiVersion":"1.43","Os":"linux","Arch":"amd64","KernelVersion":"6.1.0"}`))
	})
	mux.HandleFunc("/containers/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Names":["/web"],"Image":"nginx:1.25"},{"Names":["/db"],"Image":"postgres:16"}]`))
	})
	host, port := startHTTPServer(t, mux)

	res := NewDockerCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("api_version") != "1.43" {
		t.Errorf("api_version = %v", res.Field("api_version"))
	}
	if res.Field("unauthenticated_access") != true {
		t.Errorf("unauthenticated_access = %v", res.Field("unauthenticated_access"))
	}
	containers, _ := res.Field("containers").([]string)
	if len(containers) != 2 {
		t.Errorf("containers = %v", containers)
	}
}

func TestDockerProbeNotDocker(t *testing.T) {
	host, port := startHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	res := NewDockerCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if res.Detected {
		t.Error("404 should not detect docker")
	}
	if res.ErrorKind != model.ErrKindProtocolError {
		t.Errorf("kind = %q, want protocol_error", res.ErrorKind)
	}
}
