package vulpo

import (
	"context"
	"encoding/json"

	"github.com/vulpo/vulpo/protocol"
)

// Cookie mirrors Firefox's cookie model. ExpirationDate is a Unix
// timestamp in seconds; zero means a session cookie.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain,omitempty"`
	Path           string  `json:"path,omitempty"`
	Secure         bool    `json:"secure,omitempty"`
	HTTPOnly       bool    `json:"httpOnly,omitempty"`
	SameSite       string  `json:"sameSite,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

// GetCookie returns the named cookie for the tab's current site. A
// missing cookie returns ok false.
func (t *Tab) GetCookie(ctx context.Context, name string) (*Cookie, bool, error) {
	result, err := t.send(ctx, protocol.CmdGetCookie, map[string]any{"name": name})
	if err != nil {
		return nil, false, err
	}
	var out struct {
		Cookie *Cookie `json:"cookie"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, false, wrapError(KindJSON, err, "decode getCookie result")
	}
	if out.Cookie == nil {
		return nil, false, nil
	}
	return out.Cookie, true, nil
}

// SetCookie stores a cookie for the tab's current site.
func (t *Tab) SetCookie(ctx context.Context, cookie Cookie) error {
	raw, err := json.Marshal(cookie)
	if err != nil {
		return wrapError(KindJSON, err, "encode cookie")
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return wrapError(KindJSON, err, "encode cookie")
	}
	_, err = t.send(ctx, protocol.CmdSetCookie, map[string]any{"cookie": params})
	return err
}

// DeleteCookie removes the named cookie. Unknown names are a no-op.
func (t *Tab) DeleteCookie(ctx context.Context, name string) error {
	_, err := t.send(ctx, protocol.CmdDeleteCookie, map[string]any{"name": name})
	return err
}

// GetAllCookies returns every cookie visible to the tab's current site.
func (t *Tab) GetAllCookies(ctx context.Context) ([]Cookie, error) {
	result, err := t.send(ctx, protocol.CmdGetAllCookies, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode getAllCookies result")
	}
	return out.Cookies, nil
}

// LocalStorageGet reads one localStorage key. A missing key returns ok
// false.
func (t *Tab) LocalStorageGet(ctx context.Context, key string) (string, bool, error) {
	return t.storageGet(ctx, protocol.CmdLocalStorageGet, key)
}

// LocalStorageSet writes one localStorage key.
func (t *Tab) LocalStorageSet(ctx context.Context, key, value string) error {
	_, err := t.send(ctx, protocol.CmdLocalStorageSet, map[string]any{"key": key, "value": value})
	return err
}

// LocalStorageDelete removes one localStorage key.
func (t *Tab) LocalStorageDelete(ctx context.Context, key string) error {
	_, err := t.send(ctx, protocol.CmdLocalStorageDelete, map[string]any{"key": key})
	return err
}

// LocalStorageClear removes every localStorage key for the site.
func (t *Tab) LocalStorageClear(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdLocalStorageClear, nil)
	return err
}

// SessionStorageGet reads one sessionStorage key. A missing key returns
// ok false.
func (t *Tab) SessionStorageGet(ctx context.Context, key string) (string, bool, error) {
	return t.storageGet(ctx, protocol.CmdSessionStorageGet, key)
}

// SessionStorageSet writes one sessionStorage key.
func (t *Tab) SessionStorageSet(ctx context.Context, key, value string) error {
	_, err := t.send(ctx, protocol.CmdSessionStorageSet, map[string]any{"key": key, "value": value})
	return err
}

// SessionStorageDelete removes one sessionStorage key.
func (t *Tab) SessionStorageDelete(ctx context.Context, key string) error {
	_, err := t.send(ctx, protocol.CmdSessionStorageDelete, map[string]any{"key": key})
	return err
}

// SessionStorageClear removes every sessionStorage key for the site.
func (t *Tab) SessionStorageClear(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdSessionStorageClear, nil)
	return err
}

func (t *Tab) storageGet(ctx context.Context, command, key string) (string, bool, error) {
	result, err := t.send(ctx, command, map[string]any{"key": key})
	if err != nil {
		return "", false, err
	}
	var out struct {
		Value  *string `json:"value"`
		Exists bool    `json:"exists"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", false, wrapError(KindJSON, err, "decode %s result", command)
	}
	if !out.Exists || out.Value == nil {
		return "", false, nil
	}
	return *out.Value, true, nil
}
