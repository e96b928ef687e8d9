package vulpo

import (
	"context"

	"github.com/vulpo/vulpo/protocol"
)

// Key is a named non-printing key for Press. Only Enter and Tab are
// accepted; anything else is rejected with InvalidArgument.
type Key string

const (
	KeyEnter Key = "Enter"
	KeyTab   Key = "Tab"
)

// TypeText types text into whatever currently holds focus, one key
// down/up pair per rune.
func (t *Tab) TypeText(ctx context.Context, text string) error {
	for _, r := range text {
		key := string(r)
		if _, err := t.send(ctx, protocol.CmdInputKeyDown, map[string]any{"key": key}); err != nil {
			return err
		}
		if _, err := t.send(ctx, protocol.CmdInputKeyUp, map[string]any{"key": key}); err != nil {
			return err
		}
	}
	return nil
}

// Press presses and releases a named key.
func (t *Tab) Press(ctx context.Context, key Key) error {
	switch key {
	case KeyEnter, KeyTab:
	default:
		return newError(KindInvalidArgument, "unsupported key %q", key)
	}
	if _, err := t.send(ctx, protocol.CmdInputKeyDown, map[string]any{"key": string(key)}); err != nil {
		return err
	}
	_, err := t.send(ctx, protocol.CmdInputKeyUp, map[string]any{"key": string(key)})
	return err
}

// MouseMove moves the pointer to viewport coordinates.
func (t *Tab) MouseMove(ctx context.Context, x, y int) error {
	_, err := t.send(ctx, protocol.CmdInputMouseMove, map[string]any{"x": x, "y": y})
	return err
}

// MouseDown presses a mouse button at the pointer's position. Button 0
// is the primary button.
func (t *Tab) MouseDown(ctx context.Context, button int) error {
	_, err := t.send(ctx, protocol.CmdInputMouseDown, map[string]any{"button": button})
	return err
}

// MouseUp releases a mouse button at the pointer's position.
func (t *Tab) MouseUp(ctx context.Context, button int) error {
	_, err := t.send(ctx, protocol.CmdInputMouseUp, map[string]any{"button": button})
	return err
}
