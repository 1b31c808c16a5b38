package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"skillforge/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnEvent(context.Background(), core.NewXPAwarded("u1", "create_post", 5, 5))

	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", hits)
	}
}

func TestSink_FiltersEventTypes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithEventTypes(core.EventAchievementUnlocked))
	sink.OnEvent(context.Background(), core.NewXPAwarded("u1", "create_post", 5, 5))
	sink.OnEvent(context.Background(), core.NewAchievementUnlocked("u1", "first_post", core.NewUserRecord("u1").Updated))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

func TestSink_SignsBody(t *testing.T) {
	secret := "s3cret"
	var ok atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		var ev core.Event
		_ = json.Unmarshal(body, &ev)
		ok.Store(r.Header.Get(SignatureHeader) == hex.EncodeToString(mac.Sum(nil)) && ev.Level == 4)
	}))
	defer srv.Close()

	New([]string{srv.URL}, WithSecret(secret)).OnEvent(context.Background(), core.NewLevelUp("u1", 4, "Knowledge Sharer"))
	if !ok.Load() {
		t.Fatal("signature missing or invalid")
	}
}

func TestSink_FailingEndpointDoesNotStopOthers(t *testing.T) {
	var hits int32
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	New([]string{bad.URL, "http://127.0.0.1:1", good.URL}).OnEvent(context.Background(), core.NewBadgeAwarded("u1", "b"))
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected good endpoint to be hit once, got %d", hits)
	}
}
