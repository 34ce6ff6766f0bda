package cache

import (
	"net/url"
	"sort"
	"strings"
)

// RequestKey builds a deterministic cache key from a route path and its query
// parameters: params are sorted by name (values sorted within a name), so two
// requests that differ only in parameter order share a key.
func RequestKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	first := true
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for _, v := range values {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
