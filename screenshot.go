package vulpo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/vulpo/vulpo/protocol"
)

// ScreenshotBuilder configures a capture before running it. The default
// is a PNG of the full page.
type ScreenshotBuilder struct {
	tab     *Tab
	element *Element
	format  string
	quality int
}

// Screenshot starts configuring a capture of the tab's page.
func (t *Tab) Screenshot() *ScreenshotBuilder {
	return &ScreenshotBuilder{tab: t, format: "png"}
}

// Screenshot starts configuring a capture clipped to this element.
func (e *Element) Screenshot() *ScreenshotBuilder {
	return &ScreenshotBuilder{tab: e.tab, element: e, format: "png"}
}

// PNG selects lossless PNG output.
func (b *ScreenshotBuilder) PNG() *ScreenshotBuilder {
	b.format = "png"
	return b
}

// JPEG selects JPEG output with the given quality, 1 to 100.
func (b *ScreenshotBuilder) JPEG(quality int) *ScreenshotBuilder {
	b.format = "jpeg"
	b.quality = quality
	return b
}

// Capture runs the capture and returns the decoded image bytes.
func (b *ScreenshotBuilder) Capture(ctx context.Context) ([]byte, error) {
	if b.format == "jpeg" && (b.quality < 1 || b.quality > 100) {
		return nil, newError(KindInvalidArgument, "jpeg quality %d out of range", b.quality)
	}
	params := map[string]any{"format": b.format}
	if b.format == "jpeg" {
		params["quality"] = b.quality
	}

	command := protocol.CmdScreenshot
	if b.element != nil {
		command = protocol.CmdElementScreenshot
		params["elementId"] = b.element.id
	}
	result, err := b.tab.send(ctx, command, params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode screenshot result")
	}
	img, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		return nil, wrapError(KindProtocol, err, "decode screenshot payload")
	}
	return img, nil
}

// Save runs the capture and writes the image to path.
func (b *ScreenshotBuilder) Save(ctx context.Context, path string) error {
	img, err := b.Capture(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return wrapError(KindIO, err, "write screenshot to %s", path)
	}
	return nil
}
