// Package layout resolves per-route header/navbar visibility. Rules are
// a fixed table consulted at request time; there is no shared mutable
// layout state.
package layout

import "strings"

type Config struct {
	ShowHeader bool `json:"show_header"`
	ShowNavbar bool `json:"show_navbar"`
}

type rule struct {
	prefix string
	cfg    Config
}

// Ordered by prefix length at resolution time; the longest match wins.
var rules = []rule{
	{prefix: "/", cfg: Config{ShowHeader: true, ShowNavbar: true}},
	{prefix: "/auth", cfg: Config{ShowHeader: false, ShowNavbar: false}},
	{prefix: "/freelancer/onboarding", cfg: Config{ShowHeader: true, ShowNavbar: false}},
	{prefix: "/checkout", cfg: Config{ShowHeader: true, ShowNavbar: false}},
	{prefix: "/admin", cfg: Config{ShowHeader: false, ShowNavbar: true}},
}

// Resolve returns the layout config for a route path. Unknown or empty
// paths get the default (everything visible).
func Resolve(route string) Config {
	if route == "" || !strings.HasPrefix(route, "/") {
		route = "/"
	}

	best := rules[0].cfg
	bestLen := 0
	for _, r := range rules {
		if !strings.HasPrefix(route, r.prefix) {
			continue
		}
		// Prefix must end on a path boundary so "/auth" does not
		// capture "/authors".
		if len(route) > len(r.prefix) && r.prefix != "/" && route[len(r.prefix)] != '/' {
			continue
		}
		if len(r.prefix) > bestLen {
			best = r.cfg
			bestLen = len(r.prefix)
		}
	}
	return best
}
