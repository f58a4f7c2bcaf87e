package sessions

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// HTTPCookieMedium is the guard-readable medium on the server side of one request: reads come
// from the request cookies and writes go out as Set-Cookie headers. Writes and deletes made
// during the request shadow the incoming cookies, so a Store sees its own changes.
//
// Writes must happen before the handler writes the response status.
type HTTPCookieMedium struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu        sync.Mutex
	overrides map[string]cookieOverride
}

type cookieOverride struct {
	value   string
	deleted bool
}

var _ Medium = (*HTTPCookieMedium)(nil)

// NewHTTPCookieMedium binds a medium to a single request/response pair.
func NewHTTPCookieMedium(w http.ResponseWriter, r *http.Request, opts CookieOptions) *HTTPCookieMedium {
	return &HTTPCookieMedium{
		w:         w,
		r:         r,
		opts:      opts,
		overrides: make(map[string]cookieOverride),
	}
}

func (m *HTTPCookieMedium) Get(key string) (string, bool) {
	m.mu.Lock()
	override, ok := m.overrides[key]
	m.mu.Unlock()
	if ok {
		if override.deleted || override.value == "" {
			return "", false
		}
		return override.value, true
	}

	c, err := m.r.Cookie(key)
	if err != nil {
		return "", false
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (m *HTTPCookieMedium) Set(key, value string, maxAge time.Duration) error {
	http.SetCookie(m.w, m.opts.cookie(key, url.QueryEscape(value), maxAge))

	m.mu.Lock()
	m.overrides[key] = cookieOverride{value: value}
	m.mu.Unlock()
	return nil
}

func (m *HTTPCookieMedium) Delete(key string) error {
	http.SetCookie(m.w, m.opts.expired(key))

	m.mu.Lock()
	m.overrides[key] = cookieOverride{deleted: true}
	m.mu.Unlock()
	return nil
}
