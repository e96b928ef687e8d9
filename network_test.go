package vulpo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulpo/vulpo/protocol"
)

func TestAddBlockRule(t *testing.T) {
	tab, f := testTab(t)

	require.NoError(t, tab.AddBlockRule(context.Background(), "*://ads.example.com/*"))
	req := f.nextRequest(2 * time.Second)
	assert.Equal(t, protocol.CmdAddBlockRule, req.Command)
	assert.Equal(t, "*://ads.example.com/*", req.Params["pattern"])

	require.NoError(t, tab.RemoveBlockRule(context.Background(), "*://ads.example.com/*"))
}

func TestInterceptRequestsRedirect(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdAddIntercept, func(req *protocol.Request) *protocol.Response {
		assert.Equal(t, "request", req.Params["phase"])
		return okResult(req.ID, map[string]any{"interceptId": "i-1"})
	})

	id, err := tab.InterceptRequests(context.Background(), func(req *InterceptedRequest) *protocol.ReplyAction {
		if req.URL == "https://tracker/" {
			return RedirectAction("https://localhost/empty")
		}
		return AllowAction()
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.InterceptID("i-1"), id)

	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptRequest,
		EventID: 21,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-1","url":"https://tracker/","method":"GET"}`),
	})
	reply := f.nextReply(2 * time.Second)
	assert.Equal(t, protocol.EventID(21), reply.EventID)
	assert.Equal(t, "redirect", reply.Action.Action)
	assert.Equal(t, "https://localhost/empty", reply.Action.URL)

	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptRequest,
		EventID: 22,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-2","url":"https://fine/","method":"GET"}`),
	})
	reply = f.nextReply(2 * time.Second)
	assert.Equal(t, "allow", reply.Action.Action)
}

func TestInterceptResponseBodyRewrite(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdAddIntercept, func(req *protocol.Request) *protocol.Response {
		return okResult(req.ID, map[string]any{"interceptId": "i-2"})
	})

	_, err := tab.InterceptResponseBodies(context.Background(), func(body *InterceptedBody) *protocol.ReplyAction {
		if body.Body == `{"a":1}` {
			return ModifyBodyAction(`{"a":2}`)
		}
		return nil
	})
	require.NoError(t, err)

	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptResponseBody,
		EventID: 31,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-9","url":"https://api/","body":"{\"a\":1}"}`),
	})
	reply := f.nextReply(2 * time.Second)
	assert.Equal(t, "modifyBody", reply.Action.Action)
	assert.Equal(t, `{"a":2}`, reply.Action.Body)
}

func TestInterceptHeadersModify(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdAddIntercept, func(req *protocol.Request) *protocol.Response {
		return okResult(req.ID, map[string]any{"interceptId": "i-3"})
	})

	_, err := tab.InterceptRequestHeaders(context.Background(), func(req *InterceptedRequest) *protocol.ReplyAction {
		headers := map[string]string{"User-Agent": "vulpo"}
		return ModifyHeadersAction(headers)
	})
	require.NoError(t, err)

	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptRequestHeaders,
		EventID: 41,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-1","url":"https://x/","headers":{"User-Agent":"Firefox"}}`),
	})
	reply := f.nextReply(2 * time.Second)
	assert.Equal(t, "modifyHeaders", reply.Action.Action)
	assert.Equal(t, "vulpo", reply.Action.Headers["User-Agent"])
}

func TestObserveRequestBodies(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdAddIntercept, func(req *protocol.Request) *protocol.Response {
		assert.Equal(t, "requestBody", req.Params["phase"])
		return okResult(req.ID, map[string]any{"interceptId": "i-4"})
	})

	bodies := make(chan string, 1)
	_, err := tab.ObserveRequestBodies(context.Background(), func(body *InterceptedBody) {
		bodies <- body.Body
	})
	require.NoError(t, err)

	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptRequestBody,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-1","url":"https://x/","body":"payload"}`),
	})
	select {
	case body := <-bodies:
		assert.Equal(t, "payload", body)
	case <-time.After(2 * time.Second):
		t.Fatal("request body not observed")
	}
}

func TestRemoveInterceptStopsCallbacks(t *testing.T) {
	tab, f := testTab(t)
	f.handle(protocol.CmdAddIntercept, func(req *protocol.Request) *protocol.Response {
		return okResult(req.ID, map[string]any{"interceptId": "i-5"})
	})

	called := make(chan struct{}, 1)
	id, err := tab.InterceptRequests(context.Background(), func(req *InterceptedRequest) *protocol.ReplyAction {
		called <- struct{}{}
		return BlockAction()
	})
	require.NoError(t, err)
	require.NoError(t, tab.RemoveIntercept(context.Background(), id))

	// With the callback gone the dispatcher still answers, with allow.
	f.sendEvent(&protocol.Event{
		Event:   protocol.EventInterceptRequest,
		EventID: 51,
		Session: 1,
		Tab:     7,
		Data:    json.RawMessage(`{"requestId":"r-1","url":"https://x/"}`),
	})
	reply := f.nextReply(2 * time.Second)
	assert.Equal(t, "allow", reply.Action.Action)
	select {
	case <-called:
		t.Fatal("callback ran after removal")
	default:
	}
}

func TestRemoveInterceptUnknownIDIsNoop(t *testing.T) {
	tab, _ := testTab(t)
	require.NoError(t, tab.RemoveIntercept(context.Background(), "never-seen"))
}
