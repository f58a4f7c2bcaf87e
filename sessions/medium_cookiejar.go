package sessions

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// JarMedium is the guard-readable medium for a Go process acting as the browser: cookies are
// kept in an http.CookieJar scoped to the front-end URL, so every navigation made with an
// http.Client sharing the jar carries the session to the route guard.
//
// Values are query-escaped. JWT text is made of unreserved characters and passes through
// unchanged; the JSON user profile is escaped into valid cookie octets.
type JarMedium struct {
	jar     http.CookieJar
	siteURL *url.URL
	opts    CookieOptions
}

var _ Medium = (*JarMedium)(nil)

// NewJarMedium binds jar to siteURL (e.g., "https://app.example.com").
func NewJarMedium(jar http.CookieJar, siteURL string, opts CookieOptions) (*JarMedium, error) {
	if jar == nil {
		return nil, fmt.Errorf("[sessions NewJarMedium] jar is required")
	}
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewJarMedium] invalid site URL %q: %w", siteURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[sessions NewJarMedium] site URL %q must be absolute", siteURL)
	}
	return &JarMedium{jar: jar, siteURL: u, opts: opts}, nil
}

func (m *JarMedium) Get(key string) (string, bool) {
	for _, c := range m.jar.Cookies(m.siteURL) {
		if c.Name != key {
			continue
		}
		value, err := url.QueryUnescape(c.Value)
		if err != nil || value == "" {
			return "", false
		}
		return value, true
	}
	return "", false
}

func (m *JarMedium) Set(key, value string, maxAge time.Duration) error {
	m.jar.SetCookies(m.siteURL, []*http.Cookie{m.opts.cookie(key, url.QueryEscape(value), maxAge)})
	return nil
}

func (m *JarMedium) Delete(key string) error {
	m.jar.SetCookies(m.siteURL, []*http.Cookie{m.opts.expired(key)})
	return nil
}
