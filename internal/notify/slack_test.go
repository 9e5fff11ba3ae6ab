package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, "")
	if s == nil {
		t.Fatal("expected slack client")
	}
	err := s.Send(context.Background(), AudienceInfo, "Your tool is <b>DOWN!</b> \n\n<b>sync</b>")
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got != "Your tool is *DOWN!* \n\n*sync*" {
		t.Fatalf("payload not as expected: %q", got)
	}
}

func TestSlack_InfoWebhookSeparate(t *testing.T) {
	hits := map[string]int{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
	}))
	defer ts.Close()

	s := NewSlack(ts.URL+"/err", ts.URL+"/info")
	_ = s.Send(context.Background(), AudienceError, "x")
	_ = s.Send(context.Background(), AudienceInfo, "y")
	if hits["/err"] != 1 || hits["/info"] != 1 {
		t.Fatalf("routing: %v", hits)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, "")
	if err := s.Send(context.Background(), AudienceError, "Y"); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestNewSlack_NilWhenUnconfigured(t *testing.T) {
	if NewSlack("", "") != nil {
		t.Fatal("expected nil")
	}
}
