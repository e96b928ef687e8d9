package vulpo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vulpo/vulpo/protocol"
)

// Tab addresses one browsing context: a tab and the frame currently in
// focus within it. Tabs are cheap values; Clone gives an independent
// copy with its own frame focus.
type Tab struct {
	window *Window
	tab    protocol.TabID
	frame  protocol.FrameID
}

// ID returns the tab's extension-assigned id.
func (t *Tab) ID() protocol.TabID { return t.tab }

// FrameID returns the frame currently in focus. Zero is the top frame.
func (t *Tab) FrameID() protocol.FrameID { return t.frame }

// Clone returns a copy of the tab with the same frame focus. Frame
// switches on the copy do not affect the original.
func (t *Tab) Clone() *Tab {
	clone := *t
	return &clone
}

// send issues a command scoped to this tab and frame.
func (t *Tab) send(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["tabId"] = t.tab
	if t.frame != 0 {
		params["frameId"] = t.frame
	}
	return t.window.conn.Send(ctx, command, params)
}

// Goto navigates the tab to url and waits for the navigation to commit.
func (t *Tab) Goto(ctx context.Context, url string) error {
	_, err := t.send(ctx, protocol.CmdNavigate, map[string]any{"url": url})
	return err
}

// LoadHTML replaces the tab's document with the given markup.
func (t *Tab) LoadHTML(ctx context.Context, html string) error {
	_, err := t.send(ctx, protocol.CmdLoadHTML, map[string]any{"html": html})
	return err
}

// Reload reloads the current page.
func (t *Tab) Reload(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdReload, nil)
	return err
}

// Back navigates one step back in session history.
func (t *Tab) Back(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdBack, nil)
	return err
}

// Forward navigates one step forward in session history.
func (t *Tab) Forward(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdForward, nil)
	return err
}

// URL returns the tab's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	return t.stringResult(ctx, protocol.CmdCurrentURL, nil, "url")
}

// Title returns the current document title.
func (t *Tab) Title(ctx context.Context) (string, error) {
	return t.stringResult(ctx, protocol.CmdTitle, nil, "title")
}

// PageSource returns the serialized DOM of the current document.
func (t *Tab) PageSource(ctx context.Context) (string, error) {
	return t.stringResult(ctx, protocol.CmdPageSource, nil, "source")
}

func (t *Tab) stringResult(ctx context.Context, command string, params map[string]any, field string) (string, error) {
	result, err := t.send(ctx, command, params)
	if err != nil {
		return "", err
	}
	var out map[string]string
	if err := json.Unmarshal(result, &out); err != nil {
		return "", wrapError(KindJSON, err, "decode %s result", command)
	}
	return out[field], nil
}

// Close closes this tab at the remote end.
func (t *Tab) Close(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdCloseTab, nil)
	return err
}

// FrameInfo describes one frame in the tab.
type FrameInfo struct {
	FrameID protocol.FrameID `json:"frameId"`
	Parent  protocol.FrameID `json:"parentFrameId"`
	URL     string           `json:"url"`
}

// Frames lists all frames in the tab, top frame included.
func (t *Tab) Frames(ctx context.Context) ([]FrameInfo, error) {
	result, err := t.send(ctx, protocol.CmdFrames, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Frames []FrameInfo `json:"frames"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode frames result")
	}
	return out.Frames, nil
}

// FrameCount returns the number of direct child frames of the current
// frame.
func (t *Tab) FrameCount(ctx context.Context) (int, error) {
	result, err := t.send(ctx, protocol.CmdFrameCount, nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return 0, wrapError(KindJSON, err, "decode getFrameCount result")
	}
	return out.Count, nil
}

// SwitchToFrame focuses the child frame at index within the current
// frame. A missing index yields a FrameNotFound error.
func (t *Tab) SwitchToFrame(ctx context.Context, index int) error {
	return t.switchFrame(ctx, map[string]any{"index": index})
}

// SwitchToFrameElement focuses the frame hosted by an iframe element.
func (t *Tab) SwitchToFrameElement(ctx context.Context, el *Element) error {
	return t.switchFrame(ctx, map[string]any{"elementId": el.id})
}

// SwitchToParentFrame focuses the parent of the current frame. At the
// top frame this is a no-op.
func (t *Tab) SwitchToParentFrame(ctx context.Context) error {
	if t.frame == 0 {
		return nil
	}
	return t.switchFrame(ctx, map[string]any{"parent": true})
}

// SwitchToMainFrame focuses the top frame.
func (t *Tab) SwitchToMainFrame() {
	t.frame = 0
}

func (t *Tab) switchFrame(ctx context.Context, params map[string]any) error {
	result, err := t.send(ctx, protocol.CmdSwitchFrame, params)
	if err != nil {
		return err
	}
	var out struct {
		FrameID protocol.FrameID `json:"frameId"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return wrapError(KindJSON, err, "decode switchFrame result")
	}
	t.frame = out.FrameID
	return nil
}

// ExecuteScript runs source in the page and returns the serialized
// value of its final expression.
func (t *Tab) ExecuteScript(ctx context.Context, source string) (json.RawMessage, error) {
	return t.executeScript(ctx, protocol.CmdScriptExecute, source)
}

// ExecuteAsyncScript runs source in the page; when the script returns a
// promise the remote end awaits it and returns the settled value.
func (t *Tab) ExecuteAsyncScript(ctx context.Context, source string) (json.RawMessage, error) {
	return t.executeScript(ctx, protocol.CmdScriptExecuteAsync, source)
}

func (t *Tab) executeScript(ctx context.Context, command, source string) (json.RawMessage, error) {
	result, err := t.send(ctx, command, map[string]any{"source": source})
	if err != nil {
		return nil, err
	}
	var out struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode script result")
	}
	return out.Value, nil
}

// FindElement resolves by to a single element. An empty match yields an
// ElementNotFound error.
func (t *Tab) FindElement(ctx context.Context, by By) (*Element, error) {
	result, err := t.send(ctx, protocol.CmdElementFind, map[string]any{"selector": by.params()})
	if err != nil {
		return nil, err
	}
	var out struct {
		ElementID protocol.ElementID `json:"elementId"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode find result")
	}
	return &Element{tab: t, id: out.ElementID}, nil
}

// FindElements resolves by to every matching element, possibly none.
func (t *Tab) FindElements(ctx context.Context, by By) ([]*Element, error) {
	result, err := t.send(ctx, protocol.CmdElementFindAll, map[string]any{"selector": by.params()})
	if err != nil {
		return nil, err
	}
	var out struct {
		ElementIDs []protocol.ElementID `json:"elementIds"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode findAll result")
	}
	elements := make([]*Element, len(out.ElementIDs))
	for i, id := range out.ElementIDs {
		elements[i] = &Element{tab: t, id: id}
	}
	return elements, nil
}

type elementAddedData struct {
	SubscriptionID protocol.SubscriptionID `json:"subscriptionId"`
	ElementID      protocol.ElementID      `json:"elementId"`
}

// WaitForElement blocks until an element matching by appears, up to
// timeout. Elements already present resolve immediately. On timeout a
// typed Timeout error is returned and the watch is withdrawn.
func (t *Tab) WaitForElement(ctx context.Context, by By, timeout time.Duration) (*Element, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := t.send(wctx, protocol.CmdElementSubscribe, map[string]any{
		"selector": by.params(),
		"oneShot":  true,
	})
	if err != nil {
		return nil, err
	}
	var sub struct {
		SubscriptionID protocol.SubscriptionID `json:"subscriptionId"`
	}
	if err := json.Unmarshal(result, &sub); err != nil {
		return nil, wrapError(KindJSON, err, "decode subscribe result")
	}
	defer t.dropElementWatch(sub.SubscriptionID)

	conn := t.window.conn
	found := make(chan protocol.ElementID, 1)
	key := conn.subscribe(protocol.EventElementAdded, t.tab, func(ev *protocol.Event) {
		var data elementAddedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		if data.SubscriptionID != sub.SubscriptionID {
			return
		}
		select {
		case found <- data.ElementID:
		default:
		}
	})
	defer conn.unsubscribe(key)

	// The element may have existed before the watch was in place.
	if el, err := t.FindElement(wctx, by); err == nil {
		return el, nil
	}

	select {
	case id := <-found:
		return &Element{tab: t, id: id}, nil
	case <-wctx.Done():
		return nil, newError(KindTimeout, "no element matched %s within %s", by, timeout)
	}
}

func (t *Tab) dropElementWatch(id protocol.SubscriptionID) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownRequestTimeout)
	defer cancel()
	t.send(ctx, protocol.CmdElementUnsubscribe, map[string]any{"subscriptionId": id})
}

// OnElementAdded invokes handler for every element matching by that
// appears in the tab, until Unsubscribe is called with the returned id.
func (t *Tab) OnElementAdded(ctx context.Context, by By, handler func(*Element)) (protocol.SubscriptionID, error) {
	result, err := t.send(ctx, protocol.CmdElementSubscribe, map[string]any{
		"selector": by.params(),
		"oneShot":  false,
	})
	if err != nil {
		return "", err
	}
	var sub struct {
		SubscriptionID protocol.SubscriptionID `json:"subscriptionId"`
	}
	if err := json.Unmarshal(result, &sub); err != nil {
		return "", wrapError(KindJSON, err, "decode subscribe result")
	}

	conn := t.window.conn
	tab := t.Clone()
	key := conn.subscribe(protocol.EventElementAdded, t.tab, func(ev *protocol.Event) {
		var data elementAddedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		if data.SubscriptionID != sub.SubscriptionID {
			return
		}
		handler(&Element{tab: tab, id: data.ElementID})
	})
	t.window.trackSubscription(sub.SubscriptionID, key)
	return sub.SubscriptionID, nil
}

// OnElementRemoved invokes handler with the element id of every element
// matching by that leaves the document, until Unsubscribe is called
// with the returned id. Removed elements are gone by the time the
// handler runs, so only the id is delivered.
func (t *Tab) OnElementRemoved(ctx context.Context, by By, handler func(protocol.ElementID)) (protocol.SubscriptionID, error) {
	result, err := t.send(ctx, protocol.CmdElementSubscribe, map[string]any{
		"selector": by.params(),
		"oneShot":  false,
		"watch":    "removed",
	})
	if err != nil {
		return "", err
	}
	var sub struct {
		SubscriptionID protocol.SubscriptionID `json:"subscriptionId"`
	}
	if err := json.Unmarshal(result, &sub); err != nil {
		return "", wrapError(KindJSON, err, "decode subscribe result")
	}

	key := t.window.conn.subscribe(protocol.EventElementRemoved, t.tab, func(ev *protocol.Event) {
		var data elementAddedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		if data.SubscriptionID != sub.SubscriptionID {
			return
		}
		handler(data.ElementID)
	})
	t.window.trackSubscription(sub.SubscriptionID, key)
	return sub.SubscriptionID, nil
}

// Unsubscribe withdraws an element watch created by OnElementAdded or
// OnElementRemoved. Unknown ids are ignored.
func (t *Tab) Unsubscribe(ctx context.Context, id protocol.SubscriptionID) error {
	t.window.dropSubscription(id)
	_, err := t.send(ctx, protocol.CmdElementUnsubscribe, map[string]any{"subscriptionId": id})
	return err
}

// Subscribe enables an event stream for this tab and invokes handler
// for every delivery. The stream stays live until Unsubscribe.
func (t *Tab) Subscribe(ctx context.Context, event string, handler EventHandler) (protocol.SubscriptionID, error) {
	result, err := t.send(ctx, protocol.CmdSessionSubscribe, map[string]any{"events": []string{event}})
	if err != nil {
		return "", err
	}
	var sub struct {
		SubscriptionID protocol.SubscriptionID `json:"subscriptionId"`
	}
	if err := json.Unmarshal(result, &sub); err != nil {
		return "", wrapError(KindJSON, err, "decode subscribe result")
	}
	key := t.window.conn.subscribe(event, t.tab, handler)
	t.window.trackSubscription(sub.SubscriptionID, key)
	return sub.SubscriptionID, nil
}

// UnsubscribeEvent withdraws an event stream created by Subscribe.
func (t *Tab) UnsubscribeEvent(ctx context.Context, id protocol.SubscriptionID) error {
	t.window.dropSubscription(id)
	_, err := t.send(ctx, protocol.CmdSessionUnsubscribe, map[string]any{"subscriptionId": id})
	return err
}

// ScrollBy scrolls the current frame by a pixel delta.
func (t *Tab) ScrollBy(ctx context.Context, dx, dy int) error {
	_, err := t.send(ctx, protocol.CmdInputScroll, map[string]any{"deltaX": dx, "deltaY": dy})
	return err
}

// ScrollTo scrolls the current frame to an absolute position.
func (t *Tab) ScrollTo(ctx context.Context, x, y int) error {
	_, err := t.send(ctx, protocol.CmdInputScroll, map[string]any{"x": x, "y": y})
	return err
}

// ScrollToTop scrolls the current frame to the top of the document.
func (t *Tab) ScrollToTop(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdInputScroll, map[string]any{"to": "top"})
	return err
}

// ScrollToBottom scrolls the current frame to the bottom of the
// document.
func (t *Tab) ScrollToBottom(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdInputScroll, map[string]any{"to": "bottom"})
	return err
}

// ScrollPosition returns the frame's current scroll offset in pixels.
func (t *Tab) ScrollPosition(ctx context.Context) (x, y int, err error) {
	return t.scriptPair(ctx, "return { x: window.scrollX, y: window.scrollY };", "x", "y")
}

// PageSize returns the dimensions of the scrollable document area.
func (t *Tab) PageSize(ctx context.Context) (width, height int, err error) {
	const script = `
		const body = document.body;
		const html = document.documentElement;
		return {
			width: Math.max(body.scrollWidth, body.offsetWidth, html.clientWidth, html.scrollWidth, html.offsetWidth),
			height: Math.max(body.scrollHeight, body.offsetHeight, html.clientHeight, html.scrollHeight, html.offsetHeight)
		};`
	return t.scriptPair(ctx, script, "width", "height")
}

// ViewportSize returns the visible viewport dimensions.
func (t *Tab) ViewportSize(ctx context.Context) (width, height int, err error) {
	return t.scriptPair(ctx, "return { width: window.innerWidth, height: window.innerHeight };", "width", "height")
}

func (t *Tab) scriptPair(ctx context.Context, script, first, second string) (int, int, error) {
	value, err := t.ExecuteScript(ctx, script)
	if err != nil {
		return 0, 0, err
	}
	var out map[string]int
	if err := json.Unmarshal(value, &out); err != nil {
		return 0, 0, wrapError(KindJSON, err, "decode script value")
	}
	return out[first], out[second], nil
}
