package textnorm

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// NearMatchRatio is the minimum similarity for a single-word anchor to count as
// a near-verbatim mention ("kaffet" for "kaffe", "Lisa" for "Lisah").
const NearMatchRatio = 0.8

// Similarity returns 1 − editDistance/maxLen over runes, in [0,1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// MatchAnchors returns the distinct anchors (as given) that occur in the folded
// words. Multi-word anchors must appear as a phrase; single-word anchors of four
// or more letters also match a word within NearMatchRatio.
func MatchAnchors(words []string, anchors []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, anchor := range anchors {
		folded := Fold(anchor)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		parts := strings.Fields(folded)
		if len(parts) > 1 {
			if CountWords(words, parts) > 0 {
				out = append(out, anchor)
			}
			continue
		}
		if matchWord(words, folded) {
			out = append(out, anchor)
		}
	}
	return out
}

func matchWord(words []string, target string) bool {
	tl := len([]rune(target))
	for _, w := range words {
		if w == target {
			return true
		}
		if tl < 4 {
			continue
		}
		wl := len([]rune(w))
		if wl < tl-2 || wl > tl+2 {
			continue
		}
		if Similarity(w, target) >= NearMatchRatio {
			return true
		}
	}
	return false
}
