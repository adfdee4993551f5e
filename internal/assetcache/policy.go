package assetcache

import (
	"net/url"
	"strings"
)

// Policy decides how a request is served.
type Policy struct {
	// DynamicHosts are always fetched from the network. A listed host
	// matches itself and its subdomains.
	DynamicHosts []string
}

// IsDynamic reports whether u targets a live API host.
func (p Policy) IsDynamic(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, h := range p.DynamicHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
