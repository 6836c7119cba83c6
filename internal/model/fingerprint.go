package model

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex BLAKE2b-256 digest of the result set.
// It is insensitive to result order, so a page that only reshuffles
// its ranking keeps the same fingerprint. An empty set returns "".
func Fingerprint(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.URL+"\x00"+r.Language())
	}
	sort.Strings(lines)

	sum := blake2b.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
