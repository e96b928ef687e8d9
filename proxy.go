package vulpo

import (
	"context"

	"github.com/vulpo/vulpo/protocol"
)

// ProxyScheme selects the proxy protocol.
type ProxyScheme string

const (
	ProxyHTTP   ProxyScheme = "http"
	ProxyHTTPS  ProxyScheme = "https"
	ProxySOCKS4 ProxyScheme = "socks4"
	ProxySOCKS5 ProxyScheme = "socks5"
)

// ProxyConfig routes the tab's traffic through a proxy. Username and
// Password are optional. ProxyDNS resolves hostnames through the proxy
// instead of locally; it only applies to the SOCKS schemes.
type ProxyConfig struct {
	Scheme   ProxyScheme
	Host     string
	Port     int
	Username string
	Password string
	ProxyDNS bool
}

func (cfg ProxyConfig) params() (map[string]any, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, newError(KindInvalidArgument, "proxy needs a host and port")
	}
	switch cfg.Scheme {
	case ProxyHTTP, ProxyHTTPS, ProxySOCKS4, ProxySOCKS5:
	default:
		return nil, newError(KindInvalidArgument, "unsupported proxy scheme %q", cfg.Scheme)
	}
	params := map[string]any{
		"scheme": string(cfg.Scheme),
		"host":   cfg.Host,
		"port":   cfg.Port,
	}
	if cfg.Username != "" {
		params["username"] = cfg.Username
		params["password"] = cfg.Password
	}
	if cfg.ProxyDNS {
		params["proxyDns"] = true
	}
	return params, nil
}

// SetProxy routes this tab's traffic through the given proxy.
func (t *Tab) SetProxy(ctx context.Context, cfg ProxyConfig) error {
	params, err := cfg.params()
	if err != nil {
		return err
	}
	_, err = t.send(ctx, protocol.CmdProxySet, params)
	return err
}

// ClearProxy restores direct connections for this tab.
func (t *Tab) ClearProxy(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdProxyClear, nil)
	return err
}

// SetProxy routes the whole window's traffic through the given proxy.
// A tab-level proxy takes precedence over the window's.
func (w *Window) SetProxy(ctx context.Context, cfg ProxyConfig) error {
	params, err := cfg.params()
	if err != nil {
		return err
	}
	_, err = w.conn.Send(ctx, protocol.CmdProxySet, params)
	return err
}

// ClearProxy restores direct connections for the whole window.
func (w *Window) ClearProxy(ctx context.Context) error {
	_, err := w.conn.Send(ctx, protocol.CmdProxyClear, nil)
	return err
}
