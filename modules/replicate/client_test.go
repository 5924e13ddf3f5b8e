package replicate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/legendx/enhancebot/common"
	"github.com/legendx/enhancebot/modules/replicate"
)

func newTestClient(ts *httptest.Server, modelID string) replicate.Client {
	hc := common.NewHttpClient("test-agent", &http.Client{})
	return replicate.NewClientWithHTTP(ts.URL, modelID, hc)
}

func TestClient_Enhance_Success(t *testing.T) {
	enhanced := []byte("enhanced-image-bytes")

	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/predictions":
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			if req["version"] != "test-model" {
				t.Errorf("expected model version in request, got %v", req["version"])
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"p1","status":"succeeded","output":["%s/outputs/p1.jpg"]}`, ts.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/outputs/p1.jpg":
			w.Write(enhanced)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := newTestClient(ts, "test-model")
	out, err := client.Enhance(context.Background(), []byte("input"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(enhanced) {
		t.Errorf("got %q, want %q", out, enhanced)
	}
}

func TestClient_Enhance_PollsUntilTerminal(t *testing.T) {
	polls := 0
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/predictions":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"p2","status":"processing","urls":{"get":"%s/predictions/p2"}}`, ts.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/p2":
			polls++
			fmt.Fprintf(w, `{"id":"p2","status":"succeeded","output":"%s/outputs/p2.jpg"}`, ts.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/outputs/p2.jpg":
			w.Write([]byte("done"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := newTestClient(ts, "test-model")
	out, err := client.Enhance(context.Background(), []byte("input"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "done" {
		t.Errorf("got %q, want %q", out, "done")
	}
	if polls != 1 {
		t.Errorf("expected 1 poll, got %d", polls)
	}
}

func TestClient_Enhance_FailedPrediction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"p3","status":"failed","error":"out of credits"}`)
	}))
	defer ts.Close()

	client := newTestClient(ts, "test-model")
	if _, err := client.Enhance(context.Background(), []byte("input")); err == nil {
		t.Fatal("expected error for failed prediction")
	}
}

func TestClient_Enhance_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"bad token"}`)
	}))
	defer ts.Close()

	client := newTestClient(ts, "test-model")
	_, err := client.Enhance(context.Background(), []byte("input"))
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	var httpErr *common.HTTPError
	if ok := errors.As(err, &httpErr); !ok {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", httpErr.StatusCode)
	}
}

func TestClient_Enhance_ContextDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// never reaches a terminal status
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"p4","status":"processing"}`)
	}))
	defer ts.Close()

	client := newTestClient(ts, "test-model")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Enhance(ctx, []byte("input")); err == nil {
		t.Fatal("expected error once the deadline passed")
	}
}
