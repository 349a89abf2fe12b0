//go:build !(js && wasm)

package host

// Browser returns an empty Environment: no browser storage API exists
// outside js/wasm builds.
func Browser() Environment {
	return Environment{}
}
