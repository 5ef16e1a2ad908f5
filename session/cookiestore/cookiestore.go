// Package cookiestore keeps the session in browser cookies, one cookie per session key.
// Values are signed (and optionally encrypted) with gorilla/securecookie.
package cookiestore

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cienspay/cienspay-web/session"
	"github.com/gorilla/securecookie"
)

// timeNow is time.Now but pulled out as a variable for tests.
var timeNow = time.Now

const cookiePrefix = "cp_"

// Options holds options for Codec
type Options struct {
	HashKey  []byte
	BlockKey []byte
	MaxAge   time.Duration
	Domain   string
}

// Codec encodes session values into cookies. It is safe for concurrent use and
// hands out one request-bound Store per request.
type Codec struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
	domain string
}

func New(opts Options) (*Codec, error) {
	if len(opts.HashKey) < 32 {
		return nil, fmt.Errorf("[cookiestore New] hash key must be at least 32 bytes, got %d", len(opts.HashKey))
	}
	switch len(opts.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("[cookiestore New] block key must be 16, 24 or 32 bytes, got %d", len(opts.BlockKey))
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}

	var blockKey []byte
	if len(opts.BlockKey) > 0 {
		blockKey = opts.BlockKey
	}
	sc := securecookie.New(opts.HashKey, blockKey)
	sc.MaxAge(int(opts.MaxAge / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &Codec{sc: sc, maxAge: opts.MaxAge, domain: opts.Domain}, nil
}

// GenerateKey returns a random key suitable for Options.HashKey (64 bytes) or BlockKey (32 bytes)
func GenerateKey(length int) []byte {
	return securecookie.GenerateRandomKey(length)
}

// CookieName returns the cookie holding the given key
func CookieName(key session.Key) string {
	return cookiePrefix + string(key)
}

// Bind returns a session.Store reading the request's cookies and writing Set-Cookie headers to w.
// Values written through the store are visible to later reads within the same request.
func (c *Codec) Bind(w http.ResponseWriter, r *http.Request) session.Store {
	return &requestStore{
		codec:   c,
		w:       w,
		r:       r,
		secure:  isSecure(r),
		pending: make(map[session.Key]*string),
	}
}

// Encode returns the encoded cookie value for key
func (c *Codec) Encode(key session.Key, value string) (string, error) {
	return c.sc.Encode(CookieName(key), value)
}

type requestStore struct {
	codec  *Codec
	w      http.ResponseWriter
	r      *http.Request
	secure bool

	mu      sync.Mutex
	pending map[session.Key]*string // nil value means cleared in this request
}

func (s *requestStore) Get(key session.Key) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	cookie, err := s.r.Cookie(CookieName(key))
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var value string
	if err := s.codec.sc.Decode(CookieName(key), cookie.Value, &value); err != nil {
		return "", false
	}
	return value, true
}

func (s *requestStore) Set(key session.Key, value string) error {
	encoded, err := s.codec.sc.Encode(CookieName(key), value)
	if err != nil {
		return fmt.Errorf("[cookiestore Set] encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := value
	s.pending[key] = &v
	http.SetCookie(s.w, s.makeCookie(key, encoded, s.codec.maxAge))
	return nil
}

func (s *requestStore) Clear(keys ...session.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.pending[k] = nil
		c := s.makeCookie(k, "", 0)
		c.MaxAge = -1
		c.Expires = timeNow().Add(-time.Hour)
		http.SetCookie(s.w, c)
	}
	return nil
}

func (s *requestStore) makeCookie(key session.Key, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName(key),
		Value:    value,
		Path:     "/",
		Domain:   s.codec.domain,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
		Expires:  timeNow().Add(maxAge),
	}
}

func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
