package host

import "time"

// ChangeEvent reports that a key changed in a shared area. Events are only
// delivered to contexts other than the one that made the change.
type ChangeEvent struct {
	Key      string
	NewValue string
	Deleted  bool
}

// Area is a map-like string storage, such as window.localStorage.
type Area interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
	// OnChange registers fn for changes made by other contexts. The returned
	// func unregisters it.
	OnChange(fn func(ChangeEvent)) (cancel func())
}

// SameSite mirrors the cookie SameSite attribute.
type SameSite string

const (
	SameSiteDefault SameSite = ""
	SameSiteLax     SameSite = "Lax"
	SameSiteStrict  SameSite = "Strict"
	SameSiteNone    SameSite = "None"
)

// CookieOptions are the attributes written along with a cookie.
type CookieOptions struct {
	Expires  time.Duration
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite
}

// CookieJar reads and writes cookies of the current document.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, opts CookieOptions)
	Erase(name string, opts CookieOptions)
}

// ExtensionArea names one of the browser-extension storage areas.
type ExtensionArea string

const (
	ExtensionLocal   ExtensionArea = "local"
	ExtensionSession ExtensionArea = "session"
	ExtensionSync    ExtensionArea = "sync"
)

// Environment is the set of storage APIs of one context.
type Environment struct {
	LocalStorage   Area
	SessionStorage Area
	Cookies        CookieJar
	IndexedDB      Area
	Extension      map[ExtensionArea]Area
}
