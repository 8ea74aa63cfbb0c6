package protocol

import (
	"context"
	"net/http"
	"testing"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

func TestElasticsearchProbeOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cluster_name":"docker-cluster","version":{"number":"8.11.3"},"tagline":"You Know, for Search"}`))
	})
	mux.HandleFunc("/_cat/indices", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"index":"logs-2026.08"},{"index":"users"}]`))
	})
	host, port := startHTTPServer(t, mux)

	res := NewElasticsearchCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("unauthenticated_access") != true {
		t.Errorf("unauthenticated_access = %v", res.Field("unauthenticated_access"))
	}
	if res.Field("cluster_name") != "docker-cluster" {
		t.Errorf("cluster_name = %v", res.Field("cluster_name"))
	}
	if res.Field("version") != "8.11.3" {
		t.Errorf("version = %v", res.Field("version"))
	}
	indices, _ := res.Field("indices").([]string)
	if len(indices) != 2 {
		t.Errorf("indices = %v", indices)
	}
}

func TestElasticsearchProbeAuthRejectsDefaults(t *testing.T) {
	host, port := startHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	res := NewElasticsearchCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatal("401 from x-pack should still confirm the service")
	}
	if res.Field("unauthenticated_access") != false {
		t.Errorf("unauthenticated_access = %v", res.Field("unauthenticated_access"))
	}
	if res.ErrorKind != model.ErrKindAuthFailed {
		t.Errorf("kind = %q, want auth_failed", res.ErrorKind)
	}
}

func TestElasticsearchProbeDefaultCredential(t *testing.T) {
	host, port := startHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "elastic" || pass != "changeme" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"cluster_name":"prod","version":{"number":"7.17.0"}}`))
	}))

	res := NewElasticsearchCheck(probe.DefaultOptions()).Probe(context.Background(), host, port, testTimeouts())

	if !res.Detected {
		t.Fatalf("expected detected, got error=%q", res.Error)
	}
	if res.Field("default_credential") != "elastic:changeme" {
		t.Errorf("default_credential = %v", res.Field("default_credential"))
	}
}
