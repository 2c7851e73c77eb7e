package scraper

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"github.com/use-agent/souschef/models"
)

// duplicateDistance is the largest Hamming distance between two recipe
// fingerprints that still counts as the same recipe.
const duplicateDistance = 3

// collapseDuplicates keeps the first of each group of near-identical
// recipes, comparing SimHash fingerprints of title and ingredients.
func collapseDuplicates(recipes []models.Recipe) []models.Recipe {
	out := make([]models.Recipe, 0, len(recipes))
	var prints []uint64
	for _, r := range recipes {
		fp := simhash(recipeText(r))
		dup := false
		for _, p := range prints {
			if bits.OnesCount64(fp^p) <= duplicateDistance {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		prints = append(prints, fp)
		out = append(out, r)
	}
	return out
}

func recipeText(r models.Recipe) string {
	return strings.ToLower(r.Title + " " + strings.Join(r.Ingredients, " "))
}

// simhash computes a 64-bit SimHash over the words of text using FNV-64a
// word hashes.
func simhash(text string) uint64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
