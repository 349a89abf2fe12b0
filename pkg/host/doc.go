// Package host models the storage primitives a runtime provides.
//
// An Environment lists the APIs available in one browsing context: web
// storage areas, cookies, IndexedDB and extension storage areas. A nil member
// means the API does not exist in that context. Browser returns the real
// browser APIs when compiled for js/wasm; NewMemoryHub builds an in-process
// host whose contexts share data the way tabs of one browser profile do.
package host
