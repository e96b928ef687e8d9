package vulpo

import (
	"context"
	"encoding/json"

	"github.com/vulpo/vulpo/protocol"
)

// Element is an opaque handle to a DOM element held by the extension.
// Handles are only valid against the tab that minted them and go stale
// when the document navigates; stale use yields a StaleElement error.
type Element struct {
	tab *Tab
	id  protocol.ElementID
}

// ID returns the element's opaque handle.
func (e *Element) ID() protocol.ElementID { return e.id }

func (e *Element) send(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["elementId"] = e.id
	return e.tab.send(ctx, command, params)
}

// Click clicks the element.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementClick, nil)
	return err
}

// DoubleClick double-clicks the element.
func (e *Element) DoubleClick(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementClick, map[string]any{"count": 2})
	return err
}

// Hover moves the pointer over the element.
func (e *Element) Hover(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementHover, nil)
	return err
}

// MouseDown presses the primary button over the element.
func (e *Element) MouseDown(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdInputMouseDown, nil)
	return err
}

// MouseUp releases the primary button over the element.
func (e *Element) MouseUp(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdInputMouseUp, nil)
	return err
}

// TypeText types text into the element.
func (e *Element) TypeText(ctx context.Context, text string) error {
	_, err := e.send(ctx, protocol.CmdElementType, map[string]any{"text": text})
	return err
}

// Clear empties the element's value.
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementClear, nil)
	return err
}

// Text returns the element's rendered text content.
func (e *Element) Text(ctx context.Context) (string, error) {
	return e.stringResult(ctx, protocol.CmdElementGetText, nil, "text")
}

// Value returns the element's form value.
func (e *Element) Value(ctx context.Context) (string, error) {
	return e.stringResult(ctx, protocol.CmdElementGetValue, nil, "value")
}

// Attribute returns a content attribute. A missing attribute returns
// the empty string with ok false.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	result, err := e.send(ctx, protocol.CmdElementGetAttribute, map[string]any{"name": name})
	if err != nil {
		return "", false, err
	}
	var out struct {
		Value  string `json:"value"`
		Exists bool   `json:"exists"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", false, wrapError(KindJSON, err, "decode attribute result")
	}
	return out.Value, out.Exists, nil
}

// Property returns an IDL property as a serialized value.
func (e *Element) Property(ctx context.Context, name string) (json.RawMessage, error) {
	result, err := e.send(ctx, protocol.CmdElementGetProperty, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	var out struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode property result")
	}
	return out.Value, nil
}

// SetProperty writes an IDL property on the element.
func (e *Element) SetProperty(ctx context.Context, name string, value any) error {
	_, err := e.send(ctx, protocol.CmdElementSetProperty, map[string]any{"name": name, "value": value})
	return err
}

// SetValue writes the element's form value directly, without key
// events. TypeText is slower but closer to real input.
func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.SetProperty(ctx, "value", value)
}

// InnerHTML returns the element's serialized inner markup.
func (e *Element) InnerHTML(ctx context.Context) (string, error) {
	value, err := e.Property(ctx, "innerHTML")
	if err != nil {
		return "", err
	}
	var html string
	if err := json.Unmarshal(value, &html); err != nil {
		return "", wrapError(KindJSON, err, "decode innerHTML value")
	}
	return html, nil
}

// IsDisplayed reports whether the element takes part in layout. An
// element with a null offsetParent is hidden.
func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	value, err := e.Property(ctx, "offsetParent")
	if err != nil {
		return false, err
	}
	return len(value) > 0 && string(value) != "null", nil
}

// IsEnabled reports whether a form element accepts input.
func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	value, err := e.Property(ctx, "disabled")
	if err != nil {
		return false, err
	}
	var disabled bool
	if len(value) > 0 {
		if err := json.Unmarshal(value, &disabled); err != nil {
			return false, wrapError(KindJSON, err, "decode disabled value")
		}
	}
	return !disabled, nil
}

// ScrollIntoView scrolls the element into the viewport.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementScrollIntoView, nil)
	return err
}

// Focus gives the element input focus.
func (e *Element) Focus(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementFocus, nil)
	return err
}

// Blur removes input focus from the element.
func (e *Element) Blur(ctx context.Context) error {
	_, err := e.send(ctx, protocol.CmdElementBlur, nil)
	return err
}

func (e *Element) stringResult(ctx context.Context, command string, params map[string]any, field string) (string, error) {
	result, err := e.send(ctx, command, params)
	if err != nil {
		return "", err
	}
	var out map[string]string
	if err := json.Unmarshal(result, &out); err != nil {
		return "", wrapError(KindJSON, err, "decode %s result", command)
	}
	return out[field], nil
}
