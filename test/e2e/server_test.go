// Package e2e exercises a running shakespeare-qa server over HTTP.
//
// Prerequisites:
//   - cmd/server running (E2E_SERVER_URL, default http://localhost:8080)
//   - a generation provider key, or the offline fallback configured
//
// Run with:
//
//	go test -v -timeout=180s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var client = &http.Client{Timeout: 120 * time.Second}

func serverURL() string {
	if v := os.Getenv("E2E_SERVER_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8080"
}

func requireServer(t *testing.T) string {
	t.Helper()
	url := serverURL()
	resp, err := client.Get(url + "/health/live")
	if err != nil {
		t.Skipf("server unavailable: %v", err)
	}
	resp.Body.Close()
	return url
}

func TestHealth(t *testing.T) {
	url := requireServer(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := client.Get(url + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAsk(t *testing.T) {
	url := requireServer(t)

	resp, err := client.Post(url+"/api/v1/ask", "application/json",
		strings.NewReader(`{"question":"What does Hamlet say about the ghost?"}`))
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Answer   string   `json:"answer"`
		Provider string   `json:"provider"`
		Keywords []string `json:"keywords"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding answer: %v", err)
	}
	if out.Answer == "" || out.Provider == "" {
		t.Errorf("incomplete answer: %+v", out)
	}
	t.Logf("provider=%s keywords=%v answer=%.120s", out.Provider, out.Keywords, out.Answer)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	url := requireServer(t)
	resp, err := client.Post(url+"/api/v1/ask", "application/json", strings.NewReader(`{"question":""}`))
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCacheAndAnalytics(t *testing.T) {
	url := requireServer(t)
	for _, path := range []string{"/api/v1/cache/stats", "/api/v1/analytics"} {
		resp, err := client.Get(url + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, decode err %v", path, resp.StatusCode, err)
		}
	}
}
