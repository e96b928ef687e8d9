package protocol

// Command names, grouped by module. The extension rejects anything not
// in this inventory with an "unknownCommand" error.
const (
	CmdNavigate    = "browsingContext.navigate"
	CmdReload      = "browsingContext.reload"
	CmdBack        = "browsingContext.back"
	CmdForward     = "browsingContext.forward"
	CmdCurrentURL  = "browsingContext.currentUrl"
	CmdTitle       = "browsingContext.title"
	CmdPageSource  = "browsingContext.pageSource"
	CmdLoadHTML    = "browsingContext.loadHtml"
	CmdNewTab      = "browsingContext.newTab"
	CmdCloseTab    = "browsingContext.closeTab"
	CmdFrames      = "browsingContext.frames"
	CmdFrameCount  = "browsingContext.getFrameCount"
	CmdSwitchFrame = "browsingContext.switchFrame"
	CmdScreenshot  = "browsingContext.screenshot"

	CmdElementFind           = "element.find"
	CmdElementFindAll        = "element.findAll"
	CmdElementClick          = "element.click"
	CmdElementType           = "element.type"
	CmdElementClear          = "element.clear"
	CmdElementGetText        = "element.getText"
	CmdElementGetValue       = "element.getValue"
	CmdElementGetAttribute   = "element.getAttribute"
	CmdElementGetProperty    = "element.getProperty"
	CmdElementSetProperty    = "element.setProperty"
	CmdElementHover          = "element.hover"
	CmdElementFocus          = "element.focus"
	CmdElementBlur           = "element.blur"
	CmdElementScrollIntoView = "element.scrollIntoView"
	CmdElementScreenshot     = "element.screenshot"
	CmdElementSubscribe      = "element.subscribe"
	CmdElementUnsubscribe    = "element.unsubscribe"

	CmdScriptExecute      = "script.execute"
	CmdScriptExecuteAsync = "script.executeAsync"

	CmdInputKeyDown   = "input.keyDown"
	CmdInputKeyUp     = "input.keyUp"
	CmdInputMouseMove = "input.mouseMove"
	CmdInputMouseDown = "input.mouseDown"
	CmdInputMouseUp   = "input.mouseUp"
	CmdInputScroll    = "input.scroll"

	CmdAddBlockRule    = "network.addBlockRule"
	CmdRemoveBlockRule = "network.removeBlockRule"
	CmdAddIntercept    = "network.addIntercept"
	CmdRemoveIntercept = "network.removeIntercept"

	CmdProxySet   = "proxy.set"
	CmdProxyClear = "proxy.clear"

	CmdGetCookie            = "storage.getCookie"
	CmdSetCookie            = "storage.setCookie"
	CmdDeleteCookie         = "storage.deleteCookie"
	CmdGetAllCookies        = "storage.getAllCookies"
	CmdLocalStorageGet      = "storage.localStorageGet"
	CmdLocalStorageSet      = "storage.localStorageSet"
	CmdLocalStorageDelete   = "storage.localStorageDelete"
	CmdLocalStorageClear    = "storage.localStorageClear"
	CmdSessionStorageGet    = "storage.sessionStorageGet"
	CmdSessionStorageSet    = "storage.sessionStorageSet"
	CmdSessionStorageDelete = "storage.sessionStorageDelete"
	CmdSessionStorageClear  = "storage.sessionStorageClear"

	CmdSessionStatus      = "session.status"
	CmdSessionStealLogs   = "session.stealLogs"
	CmdSessionSubscribe   = "session.subscribe"
	CmdSessionUnsubscribe = "session.unsubscribe"
	CmdSessionShutdown    = "session.shutdown"
)

// Event names emitted by the extension.
const (
	EventLoad              = "browsingContext.load"
	EventDOMContentLoaded  = "browsingContext.domContentLoaded"
	EventNavigationStarted = "browsingContext.navigationStarted"
	EventNavigationFailed  = "browsingContext.navigationFailed"

	EventElementAdded            = "element.added"
	EventElementRemoved          = "element.removed"
	EventElementAttributeChanged = "element.attributeChanged"

	EventBeforeRequestSent = "network.beforeRequestSent"
	EventResponseStarted   = "network.responseStarted"
	EventResponseCompleted = "network.responseCompleted"

	// Interception variants. Each carries an eventId and expects an
	// EventReply deciding the request's fate.
	EventInterceptRequest         = "network.interceptRequest"
	EventInterceptRequestHeaders  = "network.interceptRequestHeaders"
	EventInterceptRequestBody     = "network.interceptRequestBody"
	EventInterceptResponseHeaders = "network.interceptResponseHeaders"
	EventInterceptResponseBody    = "network.interceptResponseBody"
)
