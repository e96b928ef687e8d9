package vulpo

// Preference names the extension reads to find its way back to the
// driver.
const (
	prefWSURL     = "extensions.vulpo.wsUrl"
	prefSessionID = "extensions.vulpo.sessionId"
)

// defaultPrefs is the baseline preference set for every managed
// profile. It keeps Firefox quiet on the network, allows the unsigned
// automation extension, and makes startup deterministic.
func defaultPrefs() map[string]any {
	return map[string]any{
		// Unsigned extension support.
		"xpinstall.signatures.required":  false,
		"extensions.autoDisableScopes":   0,
		"extensions.enabledScopes":       15,
		"extensions.experiments.enabled": true,

		// Deterministic startup.
		"browser.startup.homepage":                "about:blank",
		"browser.startup.page":                    0,
		"startup.homepage_welcome_url":            "about:blank",
		"browser.sessionstore.resume_from_crash":  false,
		"browser.shell.checkDefaultBrowser":       false,
		"browser.aboutConfig.showWarning":         false,
		"browser.tabs.warnOnClose":                false,
		"browser.warnOnQuit":                      false,

		// No telemetry or studies.
		"datareporting.policy.dataSubmissionEnabled": false,
		"datareporting.healthreport.uploadEnabled":   false,
		"toolkit.telemetry.enabled":                  false,
		"toolkit.telemetry.unified":                  false,
		"app.normandy.enabled":                       false,

		// No updates in automated runs.
		"app.update.enabled":        false,
		"app.update.auto":           false,
		"extensions.update.enabled": false,

		// No background network chatter.
		"network.captive-portal-service.enabled": false,
		"network.connectivity-service.enabled":   false,
		"network.dns.disablePrefetch":            true,

		// Let the extension talk to the loopback WebSocket server.
		"network.websocket.allowInsecureFromHTTPS": true,
		"network.proxy.allow_hijacking_localhost":  true,
		"dom.security.https_only_mode":             false,
	}
}
