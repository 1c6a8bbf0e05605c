// Package keys builds the cache keys under which fetched sheets are stored.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const Namespace = "mapsheet"

// Key returns the cache key for one fetch of key from source. The readable
// parts are sanitized and truncated; the xxhash suffix covers the raw inputs
// so distinct keys never collide after sanitizing.
func Key(source, key, sheet string, simple bool) string {
	src := sanitize(strings.ToLower(strings.TrimSpace(source)))
	keySafe := sanitize(strings.TrimSpace(key))
	sheetSafe := sanitize(collapseASCIIWhitespace(sheet))

	const maxKeyTextLen = 96
	if len(keySafe) > maxKeyTextLen {
		keySafe = keySafe[:maxKeyTextLen]
	}
	const maxSheetTextLen = 48
	if len(sheetSafe) > maxSheetTextLen {
		sheetSafe = sheetSafe[:maxSheetTextLen]
	}

	mode := "all"
	if simple {
		mode = "simple"
	}
	sum := xxhash.Sum64String(strings.Join([]string{src, strings.TrimSpace(key), sheet, mode}, "\x00"))

	return fmt.Sprintf("%s:%s:%s:sheet=%s:%s:h=%016x", Namespace, src, keySafe, sheetSafe, mode, sum)
}

// Variants returns every key Key can produce for the same source, key and
// sheet, for invalidation.
func Variants(source, key, sheet string) []string {
	return []string{Key(source, key, sheet, false), Key(source, key, sheet, true)}
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// path separators, ':' and non-ASCII all become '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
