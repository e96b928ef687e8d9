package vulpo

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulpo/vulpo/protocol"
)

var fakePNG = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00}

func TestScreenshotCapture(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdScreenshot, func(req *protocol.Request) *protocol.Response {
		assert.Equal(t, "png", req.Params["format"])
		return okResult(req.ID, map[string]any{
			"data": base64.StdEncoding.EncodeToString(fakePNG),
		})
	})

	img, err := tab.Screenshot().PNG().Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakePNG, img)
}

func TestScreenshotJPEGQuality(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdScreenshot, func(req *protocol.Request) *protocol.Response {
		assert.Equal(t, "jpeg", req.Params["format"])
		assert.EqualValues(t, 80, req.Params["quality"])
		return okResult(req.ID, map[string]any{
			"data": base64.StdEncoding.EncodeToString([]byte("jpegdata")),
		})
	})

	img, err := tab.Screenshot().JPEG(80).Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegdata"), img)
}

func TestScreenshotJPEGQualityRange(t *testing.T) {
	tab, _ := testTab(t)

	_, err := tab.Screenshot().JPEG(0).Capture(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArgument), "got %v", err)

	_, err = tab.Screenshot().JPEG(101).Capture(context.Background())
	require.Error(t, err)
}

func TestElementScreenshotTargetsElement(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdElementScreenshot, func(req *protocol.Request) *protocol.Response {
		assert.Equal(t, "e-1", req.Params["elementId"])
		return okResult(req.ID, map[string]any{
			"data": base64.StdEncoding.EncodeToString(fakePNG),
		})
	})

	el := &Element{tab: tab, id: "e-1"}
	img, err := el.Screenshot().Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakePNG, img)
}

func TestScreenshotSave(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdScreenshot, func(req *protocol.Request) *protocol.Response {
		return okResult(req.ID, map[string]any{
			"data": base64.StdEncoding.EncodeToString(fakePNG),
		})
	})

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, tab.Screenshot().Save(context.Background(), path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fakePNG, written)
}

func TestScreenshotBadPayload(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdScreenshot, func(req *protocol.Request) *protocol.Response {
		return okResult(req.ID, map[string]any{"data": "not base64!!!"})
	})

	_, err := tab.Screenshot().Capture(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProtocol), "got %v", err)
}
