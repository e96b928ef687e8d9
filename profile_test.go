package vulpo

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
	"manifest_version": 2,
	"name": "probe",
	"version": "1.0",
	"browser_specific_settings": {"gecko": {"id": "probe@vulpo.test"}}
}`

func writeUnpackedExtension(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(testManifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "bg.js"), []byte("// bg"), 0o644))
	return dir
}

func packExtension(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(testManifest))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWritePrefsFormat(t *testing.T) {
	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	p.prefs = map[string]any{
		"bool.pref":   true,
		"int.pref":    42,
		"string.pref": `quo"ted`,
	}
	require.NoError(t, p.writePrefs())

	raw, err := os.ReadFile(filepath.Join(p.Dir(), "user.js"))
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, `user_pref("bool.pref", true);`)
	assert.Contains(t, content, `user_pref("int.pref", 42);`)
	assert.Contains(t, content, `user_pref("string.pref", "quo\"ted");`)
}

func TestWritePrefsRejectsOddTypes(t *testing.T) {
	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	p.SetPref("bad.pref", []string{"nope"})
	err = p.writePrefs()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProfile), "got %v", err)
}

func TestDefaultPrefsArePresent(t *testing.T) {
	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	require.NoError(t, p.writePrefs())
	raw, err := os.ReadFile(filepath.Join(p.Dir(), "user.js"))
	require.NoError(t, err)
	content := string(raw)

	for _, name := range []string{
		"network.captive-portal-service.enabled",
		"app.update.enabled",
		"browser.startup.homepage",
		"xpinstall.signatures.required",
	} {
		assert.Contains(t, content, name)
	}
}

func TestInstallUnpackedExtension(t *testing.T) {
	src := writeUnpackedExtension(t)
	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	require.NoError(t, p.installExtension(ExtensionFromDir(src)))

	installed := filepath.Join(p.Dir(), "extensions", "probe@vulpo.test")
	assert.FileExists(t, filepath.Join(installed, "manifest.json"))
	assert.FileExists(t, filepath.Join(installed, "scripts", "bg.js"))
}

func TestInstallPackedExtension(t *testing.T) {
	archive := packExtension(t)
	path := filepath.Join(t.TempDir(), "probe.xpi")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	require.NoError(t, p.installExtension(ExtensionFromFile(path)))
	assert.FileExists(t, filepath.Join(p.Dir(), "extensions", "probe@vulpo.test.xpi"))
}

func TestInstallBase64Extension(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(packExtension(t))

	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	require.NoError(t, p.installExtension(ExtensionFromBase64(encoded)))
	assert.FileExists(t, filepath.Join(p.Dir(), "extensions", "probe@vulpo.test.xpi"))
}

func TestInstallRejectsManifestWithoutID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"),
		[]byte(`{"manifest_version": 2, "name": "anon"}`), 0o644))

	p, err := newTempProfile()
	require.NoError(t, err)
	defer p.remove()

	err = p.installExtension(ExtensionFromDir(dir))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProfile), "got %v", err)
}

func TestManifestLegacyApplicationsKey(t *testing.T) {
	id, err := manifestID([]byte(`{"applications": {"gecko": {"id": "legacy@vulpo.test"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "legacy@vulpo.test", id)
}

func TestTempProfileRemove(t *testing.T) {
	p, err := newTempProfile()
	require.NoError(t, err)
	dir := p.Dir()
	require.DirExists(t, dir)

	require.NoError(t, p.remove())
	assert.NoDirExists(t, dir)
}

func TestPersistentProfileSurvivesRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keep")
	p, err := newPersistentProfile(dir)
	require.NoError(t, err)
	require.DirExists(t, dir)

	require.NoError(t, p.remove())
	assert.DirExists(t, dir)
}

func TestExtensionFromPathDetectsKind(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, extUnpacked, ExtensionFromPath(dir).kind)

	file := filepath.Join(dir, "ext.xpi")
	require.NoError(t, os.WriteFile(file, []byte("zip"), 0o644))
	assert.Equal(t, extPacked, ExtensionFromPath(file).kind)
}

func TestBootPageURIEmbedsSession(t *testing.T) {
	uri := bootPageURI("ws://127.0.0.1:9000/", 12)
	require.True(t, strings.HasPrefix(uri, "data:text/html;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:text/html;base64,"))
	require.NoError(t, err)
	page := string(decoded)
	assert.Contains(t, page, `"ws://127.0.0.1:9000/"`)
	assert.Contains(t, page, "sessionId: 12")
	assert.Contains(t, page, "VULPO_INIT")
}
