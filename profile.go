package vulpo

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const userJSHeader = `// Generated file. Hand edits are overwritten on window spawn.
`

// Profile is a Firefox profile directory under this library's control.
// Temporary profiles live under the OS temp directory and are removed
// when the owning window closes; persistent profiles are never deleted.
type Profile struct {
	dir   string
	temp  bool
	prefs map[string]any
}

func newTempProfile() (*Profile, error) {
	dir, err := os.MkdirTemp("", "vulpo-profile-*")
	if err != nil {
		return nil, wrapError(KindProfile, err, "create temp profile")
	}
	return &Profile{dir: dir, temp: true, prefs: defaultPrefs()}, nil
}

func newPersistentProfile(dir string) (*Profile, error) {
	if dir == "" {
		return nil, newError(KindProfile, "profile path is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError(KindProfile, err, "create profile dir %s", dir)
	}
	return &Profile{dir: dir, prefs: defaultPrefs()}, nil
}

// Dir returns the profile directory path.
func (p *Profile) Dir() string { return p.dir }

// SetPref overrides or adds one user preference. It takes effect on the
// next writePrefs call.
func (p *Profile) SetPref(name string, value any) { p.prefs[name] = value }

// writePrefs serializes the preference set into the profile's user.js,
// one user_pref line per setting, sorted by name.
func (p *Profile) writePrefs() error {
	names := make([]string, 0, len(p.prefs))
	for name := range p.prefs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(userJSHeader)
	for _, name := range names {
		val, err := formatPrefValue(p.prefs[name])
		if err != nil {
			return wrapError(KindProfile, err, "pref %s", name)
		}
		fmt.Fprintf(&b, "user_pref(%q, %s);\n", name, val)
	}
	path := filepath.Join(p.dir, "user.js")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return wrapError(KindProfile, err, "write %s", path)
	}
	return nil
}

func formatPrefValue(v any) (string, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case int:
		return fmt.Sprintf("%d", val), nil
	case int64:
		return fmt.Sprintf("%d", val), nil
	case uint64:
		return fmt.Sprintf("%d", val), nil
	case string:
		quoted, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(quoted), nil
	default:
		return "", fmt.Errorf("unsupported pref value type %T", v)
	}
}

// installExtension places the extension payload under the profile's
// extensions directory, named by the id declared in its manifest.
func (p *Profile) installExtension(src ExtensionSource) error {
	extDir := filepath.Join(p.dir, "extensions")
	if err := os.MkdirAll(extDir, 0o755); err != nil {
		return wrapError(KindProfile, err, "create extensions dir")
	}
	switch src.kind {
	case extUnpacked:
		manifest, err := os.ReadFile(filepath.Join(src.path, "manifest.json"))
		if err != nil {
			return wrapError(KindProfile, err, "read manifest in %s", src.path)
		}
		id, err := manifestID(manifest)
		if err != nil {
			return err
		}
		return copyDir(src.path, filepath.Join(extDir, id))
	case extPacked:
		data, err := os.ReadFile(src.path)
		if err != nil {
			return wrapError(KindProfile, err, "read extension archive %s", src.path)
		}
		return p.installArchive(extDir, data)
	case extBase64:
		data, err := base64.StdEncoding.DecodeString(src.data)
		if err != nil {
			return wrapError(KindProfile, err, "decode base64 extension")
		}
		return p.installArchive(extDir, data)
	default:
		return newError(KindProfile, "unknown extension source")
	}
}

func (p *Profile) installArchive(extDir string, data []byte) error {
	manifest, err := archiveManifest(data)
	if err != nil {
		return err
	}
	id, err := manifestID(manifest)
	if err != nil {
		return err
	}
	path := filepath.Join(extDir, id+".xpi")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapError(KindProfile, err, "write %s", path)
	}
	return nil
}

func archiveManifest(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, wrapError(KindProfile, err, "open extension archive")
	}
	for _, f := range zr.File {
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, wrapError(KindProfile, err, "open manifest in archive")
		}
		defer rc.Close()
		manifest, err := io.ReadAll(rc)
		if err != nil {
			return nil, wrapError(KindProfile, err, "read manifest in archive")
		}
		return manifest, nil
	}
	return nil, newError(KindProfile, "extension archive has no manifest.json")
}

// manifestID extracts the gecko extension id from a manifest, looking
// at browser_specific_settings first and the legacy applications key
// second.
func manifestID(manifest []byte) (string, error) {
	var m struct {
		BrowserSpecificSettings struct {
			Gecko struct {
				ID string `json:"id"`
			} `json:"gecko"`
		} `json:"browser_specific_settings"`
		Applications struct {
			Gecko struct {
				ID string `json:"id"`
			} `json:"gecko"`
		} `json:"applications"`
	}
	if err := json.Unmarshal(manifest, &m); err != nil {
		return "", wrapError(KindProfile, err, "parse manifest.json")
	}
	if id := m.BrowserSpecificSettings.Gecko.ID; id != "" {
		return id, nil
	}
	if id := m.Applications.Gecko.ID; id != "" {
		return id, nil
	}
	return "", newError(KindProfile, "manifest declares no gecko id")
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return wrapError(KindProfile, err, "read dir %s", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return wrapError(KindProfile, err, "create dir %s", dst)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(from, to); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(from)
		if err != nil {
			return wrapError(KindProfile, err, "read %s", from)
		}
		if err := os.WriteFile(to, data, 0o644); err != nil {
			return wrapError(KindProfile, err, "write %s", to)
		}
	}
	return nil
}

// remove deletes a temporary profile's directory. Persistent profiles
// are left alone.
func (p *Profile) remove() error {
	if !p.temp {
		return nil
	}
	if err := os.RemoveAll(p.dir); err != nil {
		return wrapError(KindProfile, err, "remove temp profile %s", p.dir)
	}
	return nil
}
