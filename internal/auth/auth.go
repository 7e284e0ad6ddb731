// Package auth implements the single shared-password login and the session
// tokens backing it. Handlers never consult global state: the middleware
// resolves the session cookie once per request and stores an is-authenticated
// capability in the request context.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const authedKey ctxKey = "duffel.authed"

// CookieName carries the session token.
const CookieName = "duffel_session"

// Authed reports whether the request behind ctx is authenticated.
func Authed(ctx context.Context) bool {
	v, _ := ctx.Value(authedKey).(bool)
	return v
}

// WithAuthed marks a context as authenticated.
func WithAuthed(ctx context.Context) context.Context {
	return context.WithValue(ctx, authedKey, true)
}

// VerifyPassword checks a cleartext password against the configured bcrypt
// hash. An empty hash means auth is disabled and every password fails (the
// middleware short-circuits that case before login is reachable).
func VerifyPassword(bcryptHash, password string) bool {
	if bcryptHash == "" {
		// constant-ish work
		_ = subtle.ConstantTimeByteEq(1, 1)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(password)) == nil
}

// Sessions is an in-memory session token store. Tokens are opaque random
// values with a fixed time-to-live.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
	ttl    time.Duration
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{tokens: map[string]time.Time{}, ttl: ttl}
}

// Issue creates and registers a new session token.
func (s *Sessions) Issue() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b[:])
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return token, nil
}

// Valid reports whether the token is live, pruning it when expired.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke removes a token.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Middleware resolves the session cookie into the request-scoped capability.
// With an empty password hash the server runs open and every request is
// treated as authenticated.
func Middleware(passwordBcrypt string, sessions *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if passwordBcrypt == "" {
			next.ServeHTTP(w, r.WithContext(WithAuthed(r.Context())))
			return
		}
		if c, err := r.Cookie(CookieName); err == nil && sessions.Valid(c.Value) {
			r = r.WithContext(WithAuthed(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}
