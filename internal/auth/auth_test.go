package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	if !VerifyPassword(string(hash), "hunter2") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(string(hash), "wrong") {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("", "anything") {
		t.Error("empty hash accepted a password")
	}
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Error("garbage hash accepted a password")
	}
}

func TestSessionsLifecycle(t *testing.T) {
	s := NewSessions(time.Hour)

	tok, err := s.Issue()
	if err != nil {
		t.Fatal(err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if !s.Valid(tok) {
		t.Error("fresh token invalid")
	}
	if s.Valid("") || s.Valid("forged") {
		t.Error("bogus token accepted")
	}

	s.Revoke(tok)
	if s.Valid(tok) {
		t.Error("revoked token still valid")
	}
}

func TestSessionsExpiry(t *testing.T) {
	s := NewSessions(time.Millisecond)
	tok, err := s.Issue()
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if s.Valid(tok) {
		t.Error("expired token still valid")
	}
	// Expired tokens are pruned on the failed check.
	s.mu.Lock()
	_, still := s.tokens[tok]
	s.mu.Unlock()
	if still {
		t.Error("expired token not pruned")
	}
}

func TestAuthedContext(t *testing.T) {
	ctx := context.Background()
	if Authed(ctx) {
		t.Error("bare context authenticated")
	}
	if !Authed(WithAuthed(ctx)) {
		t.Error("marked context not authenticated")
	}
}

func TestMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sessions := NewSessions(time.Hour)
	tok, err := sessions.Issue()
	if err != nil {
		t.Fatal(err)
	}

	var got bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Authed(r.Context())
	})

	call := func(h http.Handler, cookie string) bool {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		got = false
		h.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	h := Middleware(string(hash), sessions, inner)
	if call(h, "") {
		t.Error("no cookie treated as authenticated")
	}
	if call(h, "forged") {
		t.Error("forged cookie treated as authenticated")
	}
	if !call(h, tok) {
		t.Error("valid session cookie not authenticated")
	}

	// Empty hash runs the server open.
	open := Middleware("", sessions, inner)
	if !call(open, "") {
		t.Error("open mode not authenticated")
	}
}
