// Package vulpo drives Firefox through a companion browser extension.
//
// A Driver binds one loopback WebSocket listener and launches Firefox
// windows that dial back into it. Each window runs with its own
// profile and session; commands and events for all windows multiplex
// over the single listener, routed by session id.
//
// Typical use:
//
//	driver, err := vulpo.NewDriver().
//		Extension(vulpo.ExtensionFromPath("./extension")).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer driver.Close(context.Background())
//
//	window, err := driver.NewWindow().Headless().Spawn(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	tab := window.Tab()
//	if err := tab.Goto(ctx, "https://example.com"); err != nil {
//		log.Fatal(err)
//	}
//	title, err := tab.Title(ctx)
//
// All browser truth lives in the extension; this package transports
// commands, correlates responses and dispatches events. Every failure
// surfaces as an *Error carrying a Kind that callers can branch on
// with IsKind.
package vulpo
