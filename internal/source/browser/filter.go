package browser

import (
	"net/url"
	"strings"
)

// isWebURL reports whether raw is a well-formed http or https URL
func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// hostFilter drops URLs whose host equals an excluded domain or is a subdomain of one
type hostFilter struct {
	domains []string
}

func newHostFilter(domains []string) hostFilter {
	f := hostFilter{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d != "" {
			f.domains = append(f.domains, d)
		}
	}
	return f
}

func (f hostFilter) excluded(raw string) bool {
	if len(f.domains) == 0 {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range f.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
