// Package cookiesession is a signed-cookie key/value carrier for gin.
//
// The whole map is stored client side as an HS256 JWT. The cookie only
// carries what the server put there; a cookie that fails verification is
// treated as empty.
package cookiesession

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextKey = "cookiesession.session"

// ErrEmptyKey is returned when the store is created without a signing key.
var ErrEmptyKey = errors.New("cookiesession: signing key must not be empty")

// Options are the cookie attributes.
type Options struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// DefaultOptions returns attributes for a 30 day HttpOnly, SameSite=Lax cookie.
func DefaultOptions(name string) Options {
	return Options{
		Name:     name,
		Path:     "/",
		MaxAge:   30 * 24 * time.Hour,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type claims struct {
	Values map[string]json.RawMessage `json:"v"`
	jwt.RegisteredClaims
}

// Store signs and verifies carrier cookies.
type Store struct {
	key  []byte
	opts Options
	now  func() time.Time
}

// NewStore creates a store signing cookies with key.
func NewStore(key []byte, opts Options) (*Store, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if opts.Name == "" {
		return nil, errors.New("cookiesession: cookie name must not be empty")
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &Store{key: key, opts: opts, now: time.Now}, nil
}

// Options returns the cookie attributes used by the store.
func (s *Store) Options() Options {
	return s.opts
}

// Load returns the carrier for the current request. Repeated calls within the
// same request share state.
func (s *Store) Load(c *gin.Context) *Session {
	if existing, ok := c.Get(contextKey); ok {
		if sess, ok := existing.(*Session); ok {
			return sess
		}
	}

	sess := &Session{store: s, c: c, values: map[string]json.RawMessage{}}
	if raw, err := c.Cookie(s.opts.Name); err == nil && raw != "" {
		if values, err := s.decode(raw); err == nil {
			sess.values = values
		}
	}
	c.Set(contextKey, sess)
	return sess
}

func (s *Store) encode(values map[string]json.RawMessage) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Values: values,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.MaxAge)),
		},
	})
	return token.SignedString(s.key)
}

func (s *Store) decode(raw string) (map[string]json.RawMessage, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if parsed.Values == nil {
		parsed.Values = map[string]json.RawMessage{}
	}
	return parsed.Values, nil
}

// Session is the per-request view of the carrier cookie.
type Session struct {
	store  *Store
	c      *gin.Context
	values map[string]json.RawMessage
}

// Get decodes the value stored under key into dest. It reports false when
// the key is absent.
func (s *Session) Get(key string, dest interface{}) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key and rewrites the cookie.
func (s *Session) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.values[key] = raw
	return s.save()
}

// Remove deletes key. The cookie is cleared once nothing is left.
func (s *Session) Remove(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	if len(s.values) == 0 {
		s.expire()
		return
	}
	if err := s.save(); err != nil {
		s.expire()
	}
}

// Purge drops every value and instructs the client to delete the cookie.
func (s *Session) Purge() {
	s.values = map[string]json.RawMessage{}
	s.expire()
}

func (s *Session) save() error {
	value, err := s.store.encode(s.values)
	if err != nil {
		return fmt.Errorf("sign cookie: %w", err)
	}
	s.write(value, int(s.store.opts.MaxAge/time.Second))
	return nil
}

func (s *Session) expire() {
	s.write("", -1)
}

func (s *Session) write(value string, maxAge int) {
	opts := s.store.opts
	cookie := &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: opts.HttpOnly,
		SameSite: opts.SameSite,
	}

	header := s.c.Writer.Header()
	prefix := opts.Name + "="
	var kept []string
	for _, line := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	header.Del("Set-Cookie")
	for _, line := range kept {
		header.Add("Set-Cookie", line)
	}
	if v := cookie.String(); v != "" {
		header.Add("Set-Cookie", v)
	}
}
