package common_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/legendx/enhancebot/common"
)

func TestNewHttpClient(t *testing.T) {
	base := &http.Client{}
	client := common.NewHttpClient("MyUserAgent", base)
	if client == nil {
		t.Fatal("expected non-nil HttpClient")
	}
	if base.Timeout != common.DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", common.DefaultTimeout, base.Timeout)
	}
}

func TestHttpClient_Do(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestUserAgent" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "wrong user-agent")
			return
		}
		fmt.Fprint(w, "hello world")
	}))
	defer ts.Close()

	base := &http.Client{}
	hc := common.NewHttpClient("TestUserAgent", base)

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello world" {
		t.Errorf("unexpected response: %s", string(body))
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &common.HTTPError{StatusCode: http.StatusBadGateway, Body: []byte("upstream down")}
	want := "unexpected status code: 502, body: upstream down"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
