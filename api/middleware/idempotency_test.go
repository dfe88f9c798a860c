package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

type memoryReplays struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryReplays() *memoryReplays {
	return &memoryReplays{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryReplays) Key(parts ...string) string { return strings.Join(parts, "|") }

func (m *memoryReplays) Claim(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key], m.ttls[key] = value, ttl
	return true, nil
}

func (m *memoryReplays) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryReplays) Store(_ context.Context, key, value string, ttl time.Duration) error {
	m.values[key], m.ttls[key] = value, ttl
	return nil
}

func (m *memoryReplays) Forget(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func uploadWithKey(user, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/me/media", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req.WithContext(asUser(req.Context(), user))
}

func replayKey(user, key string) string {
	return "replay|" + testUserID(user).String() + "|" + key
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestIdempotentRequiresKey(t *testing.T) {
	called := false
	handler := Idempotent(newMemoryReplays(), UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadWithKey("u1", "", "{}"))
	if rec.Code != http.StatusBadRequest || called {
		t.Fatalf("expected 400 without reaching the handler, got %d (called=%v)", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadWithKey("u1", strings.Repeat("k", 256), "{}"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized key, got %d", rec.Code)
	}
}

func TestIdempotentReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplays()
	calls := 0
	handler := Idempotent(store, UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, uploadWithKey("u1", "abc", "payload"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	if ttl := store.ttls[replayKey("u1", "abc")]; ttl != UploadReplayTTL {
		t.Fatalf("expected replay ttl %s, got %s", UploadReplayTTL, ttl)
	}

	again := httptest.NewRecorder()
	handler.ServeHTTP(again, uploadWithKey("u1", "abc", "payload"))
	if again.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", again.Code)
	}
	if ct := again.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if again.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay header")
	}
	if body := strings.TrimSpace(again.Body.String()); body != `{"id":"m1"}` {
		t.Fatalf("unexpected replayed body %s", body)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotentRejectsChangedBody(t *testing.T) {
	handler := Idempotent(newMemoryReplays(), UploadReplayTTL, nil)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), uploadWithKey("u1", "xyz", "one"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadWithKey("u1", "xyz", "two"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestIdempotentRejectsKeyWhileInFlight(t *testing.T) {
	store := newMemoryReplays()
	store.values[replayKey("u1", "busy")] = inFlightMarker
	handler := Idempotent(store, UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the key is in flight")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadWithKey("u1", "busy", "{}"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestIdempotentKeysArePerUser(t *testing.T) {
	calls := 0
	handler := Idempotent(newMemoryReplays(), UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, user := range []string{"user-a", "user-b"} {
		handler.ServeHTTP(httptest.NewRecorder(), uploadWithKey(user, "shared", "same"))
	}
	if calls != 2 {
		t.Fatalf("expected one call per user, got %d", calls)
	}
}

func TestIdempotentDropsServerErrors(t *testing.T) {
	store := newMemoryReplays()
	calls := 0
	handler := Idempotent(store, ReplaceReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, uploadWithKey("u1", "retry-me", "{}"))
	if first.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", first.Code)
	}
	if len(store.values) != 0 {
		t.Fatalf("a failed attempt must release the key, got %v", store.values)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, uploadWithKey("u1", "retry-me", "{}"))
	if second.Code != http.StatusOK || calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d after %d calls", second.Code, calls)
	}
}

func TestIdempotentReleasesKeyOnPanic(t *testing.T) {
	store := newMemoryReplays()
	handler := Idempotent(store, UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), uploadWithKey("u1", "p", "{}"))
	}()
	if len(store.values) != 0 {
		t.Fatalf("expected key to be released, got %v", store.values)
	}
}

func TestIdempotentRejectsOversizedBody(t *testing.T) {
	handler := Idempotent(newMemoryReplays(), UploadReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	req := uploadWithKey("u1", "big", "0123456789")
	req.Body = http.MaxBytesReader(rec, req.Body, 4)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestIdempotentWithoutStorePassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Idempotent(nil, UploadReplayTTL, nil)(okHandler()).ServeHTTP(rec, uploadWithKey("u1", "", "{}"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
