package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GasCanCharlie/chambers-api/internal/auth"
	"github.com/GasCanCharlie/chambers-api/internal/bridge"
	"github.com/GasCanCharlie/chambers-api/internal/config"
	"github.com/GasCanCharlie/chambers-api/internal/observability"
	"github.com/GasCanCharlie/chambers-api/internal/ratelimit"
	"github.com/GasCanCharlie/chambers-api/internal/store"
)

var metricsSeq atomic.Int64

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("httpapi_test_%d", metricsSeq.Add(1)))
}

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	cfg := config.Config{AllowAnyOrigin: true, DefaultVoice: "alloy"}
	st := store.NewMemoryStore()
	verifier := &auth.StaticVerifier{Tokens: map[string]string{
		"token-a": "judge-a",
		"token-b": "judge-b",
	}}

	srv := New(cfg, st, verifier, nil, testMetrics())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, parsed
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/journal", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body["code"] != "auth_required" {
		t.Fatalf("code = %v, want auth_required", body["code"])
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/journal", "bogus", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body["code"] != "auth_failed" {
		t.Fatalf("code = %v, want auth_failed", body["code"])
	}
}

func TestJournalLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/journal", "token-a", map[string]any{
		"title":   "hard day",
		"content": "A long sentencing calendar today.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created entry has no id")
	}

	resp, got := doJSON(t, http.MethodGet, ts.URL+"/v1/journal/"+id, "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if got["content"] != "A long sentencing calendar today." {
		t.Fatalf("content = %v", got["content"])
	}

	// Another subject must not see the entry.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/journal/"+id, "token-b", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-subject get status = %d, want 404", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/journal", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("list returned %d entries, want 1", len(entries))
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/journal/"+id, "token-a", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/journal/"+id, "token-a", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestJournalRedactsPII(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/journal", "token-a", map[string]any{
		"content": "Reach me at judge@example.com about case 1:24-cv-1234.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	content, _ := created["content"].(string)
	if strings.Contains(content, "judge@example.com") || strings.Contains(content, "1:24-cv-1234") {
		t.Fatalf("content not redacted: %q", content)
	}
	if created["redacted"] != true {
		t.Fatal("redacted flag not set")
	}
}

func TestJournalValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/journal", "token-a", map[string]any{
		"title": "no content",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "invalid_body" {
		t.Fatalf("code = %v, want invalid_body", body["code"])
	}
}

func TestMoodValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, score := range []int{0, 11, -3} {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/moods", "token-a", map[string]any{"score": score})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("score %d: status = %d, want 400", score, resp.StatusCode)
		}
	}

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/moods", "token-a", map[string]any{
		"score": 7, "note": "better after recess",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if created["score"] != float64(7) {
		t.Fatalf("score = %v, want 7", created["score"])
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/moods", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	moods, _ := body["moods"].([]any)
	if len(moods) != 1 {
		t.Fatalf("list returned %d moods, want 1", len(moods))
	}
}

func TestExercisesAndCompletions(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/exercises", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	exercises, _ := body["exercises"].([]any)
	if len(exercises) == 0 {
		t.Fatal("expected seeded exercises")
	}
	first, _ := exercises[0].(map[string]any)
	exID, _ := first["id"].(string)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/exercises/"+exID+"/complete", "token-a", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("complete status = %d, want 201", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/exercises/nope/complete", "token-a", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("complete unknown status = %d, want 404", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/exercises/completions", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("completions status = %d, want 200", resp.StatusCode)
	}
	completions, _ := body["completions"].([]any)
	if len(completions) != 1 {
		t.Fatalf("got %d completions, want 1", len(completions))
	}
}

func TestSpacesAndPosts(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/spaces", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("spaces status = %d, want 200", resp.StatusCode)
	}
	spaces, _ := body["spaces"].([]any)
	if len(spaces) == 0 {
		t.Fatal("expected seeded spaces")
	}
	first, _ := spaces[0].(map[string]any)
	spaceID, _ := first["id"].(string)

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/spaces/"+spaceID+"/posts", "token-a", map[string]any{
		"author_alias": "NightOwl",
		"content":      "Anyone else take the bench home with them?",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post status = %d, want 201", resp.StatusCode)
	}
	if created["author_alias"] != "NightOwl" {
		t.Fatalf("author_alias = %v", created["author_alias"])
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/spaces/nope/posts", "token-a", map[string]any{
		"author_alias": "NightOwl", "content": "hello",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("post to unknown space status = %d, want 404", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/spaces/"+spaceID+"/posts", "token-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list posts status = %d, want 200", resp.StatusCode)
	}
	posts, _ := body["posts"].([]any)
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
}

func TestReflectWSUpgrades(t *testing.T) {
	cfg := config.Config{AllowAnyOrigin: true, DefaultVoice: "alloy"}
	st := store.NewMemoryStore()
	verifier := &auth.StaticVerifier{Tokens: map[string]string{"token-a": "judge-a"}}
	metrics := testMetrics()
	br := bridge.New(
		bridge.Config{DefaultVoice: "alloy", SessionTimeout: time.Minute},
		verifier,
		ratelimit.New(100, time.Second),
		nil,
		metrics,
		nil,
	)
	srv := New(cfg, st, verifier, br, metrics)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/reflect/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	// A session.start before auth should come back as an in-band error.
	if err := ws.WriteJSON(map[string]any{"type": "session.start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var frame map[string]any
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame["type"] != "error" || frame["code"] != "NOT_AUTHENTICATED" {
		t.Fatalf("frame = %v, want NOT_AUTHENTICATED error", frame)
	}
}
