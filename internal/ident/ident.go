// Package ident generates the human-readable identifiers exposed in API
// responses (organization and service IDs). Identifiers are derived from the
// display name — slugified, then suffixed with random base32 characters so two
// tenants registering the same name never collide.
package ident

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// suffixLen is the number of random base32 characters appended to each slug.
// 6 characters of the 32-symbol alphabet give 32^6 (~10^9) combinations per slug.
const suffixLen = 6

// base32 alphabet without padding, lowercase to match the slug
const alphabet = "abcdefghijklmnopqrstuvwxyz234567"

// maxSlugLen caps the slug portion so identifiers stay readable in URLs and logs.
const maxSlugLen = 30

// Slugify lowercases the name and collapses every non-alphanumeric run into a
// single hyphen. An empty or fully non-alphanumeric name slugs to "x" so the
// generated identifier never starts with the separator.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "x"
	}
	return slug
}

// New returns a generated identifier for the given display name,
// e.g. New("Acme Corp") -> "acme-corp-x7k2p9".
func New(name string) (string, error) {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate identifier suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return Slugify(name) + "-" + string(buf), nil
}
