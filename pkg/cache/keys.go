package cache

import "strings"

// Key builds "<kind>:<SYMBOL>[:<part>...]". Symbols are case-insensitive, so
// "aapl" and "AAPL " share one entry.
func Key(kind, symbol string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(strings.ToUpper(strings.TrimSpace(symbol)))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
