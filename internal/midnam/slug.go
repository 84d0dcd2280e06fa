package midnam

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnnamedSlug is returned by Slug when nothing usable remains.
const UnnamedSlug = "unnamed"

// Slug reduces a manufacturer or model name to lower-case ASCII letters,
// digits and single hyphens, for use in paths and MQTT topics. Accents are
// stripped first, so "Café Ŝynth" becomes "cafe-synth".
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() == 0 {
		return UnnamedSlug
	}
	return b.String()
}

// DefaultPath returns the local store path for a new device,
// "{manufacturer slug}/{model slug}.midnam".
func DefaultPath(manufacturer, model string) string {
	return Slug(manufacturer) + "/" + Slug(model) + ".midnam"
}
