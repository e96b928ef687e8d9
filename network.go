package vulpo

import (
	"context"
	"encoding/json"

	"github.com/vulpo/vulpo/protocol"
)

// InterceptedRequest describes an outgoing request presented to an
// interception callback.
type InterceptedRequest struct {
	RequestID string            `json:"requestId"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

// InterceptedResponse describes response metadata presented to an
// interception callback.
type InterceptedResponse struct {
	RequestID string            `json:"requestId"`
	URL       string            `json:"url"`
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers"`
}

// InterceptedBody carries a request or response body as text.
type InterceptedBody struct {
	RequestID string `json:"requestId"`
	URL       string `json:"url"`
	Body      string `json:"body"`
}

// Verdict constructors for interception callbacks. Returning nil from a
// callback counts as AllowAction.
func AllowAction() *protocol.ReplyAction { return protocol.Allow() }

func BlockAction() *protocol.ReplyAction {
	return &protocol.ReplyAction{Action: "block"}
}

func RedirectAction(url string) *protocol.ReplyAction {
	return &protocol.ReplyAction{Action: "redirect", URL: url}
}

func ModifyHeadersAction(headers map[string]string) *protocol.ReplyAction {
	return &protocol.ReplyAction{Action: "modifyHeaders", Headers: headers}
}

func ModifyBodyAction(body string) *protocol.ReplyAction {
	return &protocol.ReplyAction{Action: "modifyBody", Body: body}
}

// Callback signatures per interception phase. The request body phase is
// observational only and returns no verdict.
type (
	RequestCallback         func(req *InterceptedRequest) *protocol.ReplyAction
	RequestHeadersCallback  func(req *InterceptedRequest) *protocol.ReplyAction
	RequestBodyCallback     func(body *InterceptedBody)
	ResponseHeadersCallback func(resp *InterceptedResponse) *protocol.ReplyAction
	ResponseBodyCallback    func(body *InterceptedBody) *protocol.ReplyAction
)

// AddBlockRule blocks every request matching a URL pattern, for example
// "*://ads.example.com/*".
func (t *Tab) AddBlockRule(ctx context.Context, pattern string) error {
	_, err := t.send(ctx, protocol.CmdAddBlockRule, map[string]any{"pattern": pattern})
	return err
}

// RemoveBlockRule removes a block rule. Unknown patterns are a no-op.
func (t *Tab) RemoveBlockRule(ctx context.Context, pattern string) error {
	_, err := t.send(ctx, protocol.CmdRemoveBlockRule, map[string]any{"pattern": pattern})
	return err
}

// InterceptRequests registers cb for the pre-send phase. The verdict
// may allow, block or redirect each request.
func (t *Tab) InterceptRequests(ctx context.Context, cb RequestCallback) (protocol.InterceptID, error) {
	return t.addIntercept(ctx, "request", protocol.EventInterceptRequest, func(ev *protocol.Event) *protocol.ReplyAction {
		var req InterceptedRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return nil
		}
		return cb(&req)
	})
}

// InterceptRequestHeaders registers cb to observe or rewrite outgoing
// request headers.
func (t *Tab) InterceptRequestHeaders(ctx context.Context, cb RequestHeadersCallback) (protocol.InterceptID, error) {
	return t.addIntercept(ctx, "requestHeaders", protocol.EventInterceptRequestHeaders, func(ev *protocol.Event) *protocol.ReplyAction {
		var req InterceptedRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return nil
		}
		return cb(&req)
	})
}

// ObserveRequestBodies registers cb to observe outgoing request bodies.
// This phase is read-only; bodies cannot be rewritten on the way out.
func (t *Tab) ObserveRequestBodies(ctx context.Context, cb RequestBodyCallback) (protocol.InterceptID, error) {
	result, err := t.send(ctx, protocol.CmdAddIntercept, map[string]any{"phase": "requestBody"})
	if err != nil {
		return "", err
	}
	id, err := decodeInterceptID(result)
	if err != nil {
		return "", err
	}
	key := t.window.conn.subscribe(protocol.EventInterceptRequestBody, t.tab, func(ev *protocol.Event) {
		var body InterceptedBody
		if err := json.Unmarshal(ev.Data, &body); err != nil {
			return
		}
		cb(&body)
	})
	t.window.trackIntercept(id, key)
	return id, nil
}

// InterceptResponseHeaders registers cb to observe or rewrite response
// headers before the page sees them.
func (t *Tab) InterceptResponseHeaders(ctx context.Context, cb ResponseHeadersCallback) (protocol.InterceptID, error) {
	return t.addIntercept(ctx, "responseHeaders", protocol.EventInterceptResponseHeaders, func(ev *protocol.Event) *protocol.ReplyAction {
		var resp InterceptedResponse
		if err := json.Unmarshal(ev.Data, &resp); err != nil {
			return nil
		}
		return cb(&resp)
	})
}

// InterceptResponseBodies registers cb to observe or rewrite response
// bodies before the page sees them.
func (t *Tab) InterceptResponseBodies(ctx context.Context, cb ResponseBodyCallback) (protocol.InterceptID, error) {
	return t.addIntercept(ctx, "responseBody", protocol.EventInterceptResponseBody, func(ev *protocol.Event) *protocol.ReplyAction {
		var body InterceptedBody
		if err := json.Unmarshal(ev.Data, &body); err != nil {
			return nil
		}
		return cb(&body)
	})
}

// RemoveIntercept withdraws an interception. Unknown ids are a no-op.
func (t *Tab) RemoveIntercept(ctx context.Context, id protocol.InterceptID) error {
	t.window.dropIntercept(id)
	_, err := t.send(ctx, protocol.CmdRemoveIntercept, map[string]any{"interceptId": id})
	return err
}

func (t *Tab) addIntercept(ctx context.Context, phase, event string, h InterceptHandler) (protocol.InterceptID, error) {
	result, err := t.send(ctx, protocol.CmdAddIntercept, map[string]any{"phase": phase})
	if err != nil {
		return "", err
	}
	id, err := decodeInterceptID(result)
	if err != nil {
		return "", err
	}
	key := t.window.conn.subscribeReply(event, t.tab, h)
	t.window.trackIntercept(id, key)
	return id, nil
}

func decodeInterceptID(result json.RawMessage) (protocol.InterceptID, error) {
	var out struct {
		InterceptID protocol.InterceptID `json:"interceptId"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", wrapError(KindJSON, err, "decode addIntercept result")
	}
	return out.InterceptID, nil
}
