package vulpo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vulpo/vulpo/protocol"
)

// bootPageURI builds the data URI Firefox opens on launch. The page
// posts an init message carrying the callback URL and session id; the
// extension's content script picks it up and dials back. The page body
// is base64 encoded so no URI escaping is needed.
func bootPageURI(wsURL string, sid protocol.SessionID) string {
	urlJSON, _ := json.Marshal(wsURL)
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>vulpo</title></head>
<body>
<script>
window.postMessage({type: "VULPO_INIT", wsUrl: %s, sessionId: %d}, "*");
</script>
</body>
</html>`, urlJSON, sid)
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(page))
}
