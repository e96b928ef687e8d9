package vulpo

import "os"

const (
	extUnpacked = iota
	extPacked
	extBase64
)

// ExtensionSource names where the automation extension comes from. The
// zero value is not valid; use one of the constructors.
type ExtensionSource struct {
	kind int
	path string
	data string
}

// ExtensionFromDir installs an unpacked extension directory.
func ExtensionFromDir(path string) ExtensionSource {
	return ExtensionSource{kind: extUnpacked, path: path}
}

// ExtensionFromFile installs a packed .xpi or .zip archive.
func ExtensionFromFile(path string) ExtensionSource {
	return ExtensionSource{kind: extPacked, path: path}
}

// ExtensionFromBase64 installs a base64-encoded archive.
func ExtensionFromBase64(data string) ExtensionSource {
	return ExtensionSource{kind: extBase64, data: data}
}

// ExtensionFromPath picks the source form by inspecting path: a
// directory is treated as unpacked, anything else as a packed archive.
func ExtensionFromPath(path string) ExtensionSource {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ExtensionFromDir(path)
	}
	return ExtensionFromFile(path)
}

func (s ExtensionSource) valid() bool {
	switch s.kind {
	case extUnpacked, extPacked:
		return s.path != ""
	case extBase64:
		return s.data != ""
	}
	return false
}
