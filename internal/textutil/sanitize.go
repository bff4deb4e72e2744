package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DisplayName normalizes a client-supplied filename for storage and display.
// Client directory components and control characters are dropped and the
// result is NFC-normalized so visually identical names compare equal.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return norm.NFC.String(strings.TrimSpace(name))
}

// SanitizeExtension returns the lowercased extension of name including the
// leading dot, or an empty string when the name has no usable extension.
// Only ASCII letters and digits survive, so the result is always safe to
// append to a fixed stem.
func SanitizeExtension(name string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndexAny(name, `./\`)
	if idx < 0 || name[idx] != '.' || idx == len(name)-1 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name[idx+1:]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}

// Stem returns the base name of path without its final extension.
func Stem(path string) string {
	base := path
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
