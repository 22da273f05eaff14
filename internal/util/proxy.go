package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds a transport proxy selector from explicit proxy URLs,
// falling back to the environment when none are configured. noProxy is a
// comma-separated list of hosts or host suffixes that connect directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	bypass := splitHosts(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitHosts(list string) []string {
	var hosts []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if part != "" {
			hosts = append(hosts, part)
		}
	}
	return hosts
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
