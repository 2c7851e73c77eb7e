package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Key prefixes for the cached response kinds.
const (
	PrefixSearch = "recipe_search"
	PrefixDetail = "recipe_detail"
	PrefixVideo  = "video_search"
)

// Fingerprint derives a stable key from prefix and params. Empty values are
// ignored and pairs are sorted, so the order params were built in never
// changes the key.
func Fingerprint(prefix string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	h := sha256.New()
	h.Write([]byte(strings.Join(pairs, "&")))
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}
