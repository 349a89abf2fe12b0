package storage

import (
	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
)

// CookieOptions are the attributes used when writing and erasing cookies.
type CookieOptions = host.CookieOptions

// DefaultCookieOptions applies to every cookie storage; a zero field in the
// options passed to CookieStorage keeps the default.
var DefaultCookieOptions = CookieOptions{
	Path:     "/",
	SameSite: host.SameSiteStrict,
}

// CookieStorage persists values as cookies of the current document.
type CookieStorage struct {
	jar  host.CookieJar
	opts CookieOptions
}

// CookieStorage returns a storage writing cookies with opts.
func (f *Factory) CookieStorage(opts CookieOptions) domain.Storage[string] {
	if f.env.Cookies == nil {
		f.warnMissing("cookie")
		return NewNoopStorage[string]()
	}
	return NewCookieStorage(f.env.Cookies, opts)
}

// NewCookieStorage wraps jar directly.
func NewCookieStorage(jar host.CookieJar, opts CookieOptions) *CookieStorage {
	if opts.Path == "" {
		opts.Path = DefaultCookieOptions.Path
	}
	if opts.SameSite == host.SameSiteDefault {
		opts.SameSite = DefaultCookieOptions.SameSite
	}
	return &CookieStorage{jar: jar, opts: opts}
}

func (s *CookieStorage) GetValue(key string) (string, bool) {
	return s.jar.Get(key)
}

func (s *CookieStorage) SetValue(key, value string) {
	s.jar.Set(key, value, s.opts)
}

func (s *CookieStorage) DeleteValue(key string) {
	s.jar.Erase(key, s.opts)
}

// Compile-time assertion that CookieStorage implements domain.Storage.
var _ domain.Storage[string] = (*CookieStorage)(nil)
