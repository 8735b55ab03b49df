// Package textnorm turns raw transcripts into diacritic-insensitive text, tokens
// and a bounded keyword set. Everything here is pure.
package textnorm

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMinTokenLength = 3
	DefaultTopKeywords    = 20
)

type Result struct {
	Text      string   `json:"text"`
	Words     []string `json:"words"`
	Tokens    []string `json:"tokens"`
	Keywords  []string `json:"keywords"`
	Sentences []string `json:"sentences"`
}

// Empty reports whether normalization left nothing to compare.
func (r Result) Empty() bool {
	return r.Text == ""
}

type Normalizer struct {
	stop        map[string]struct{}
	minTokenLen int
	topN        int
}

// New builds a normalizer; stop words are folded the same way as input text.
func New(stopWords []string, minTokenLen, topN int) *Normalizer {
	if minTokenLen <= 0 {
		minTokenLen = DefaultMinTokenLength
	}
	if topN <= 0 {
		topN = DefaultTopKeywords
	}
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		if f := Fold(w); f != "" {
			stop[f] = struct{}{}
		}
	}
	return &Normalizer{stop: stop, minTokenLen: minTokenLen, topN: topN}
}

// IsStopWord reports whether an already folded word is a stop word.
func (n *Normalizer) IsStopWord(w string) bool {
	_, ok := n.stop[w]
	return ok
}

func (n *Normalizer) Normalize(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{}
	}
	text := Fold(raw)
	if text == "" {
		return Result{}
	}
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < n.minTokenLen {
			continue
		}
		if _, ok := n.stop[w]; ok {
			continue
		}
		tokens = append(tokens, w)
	}
	return Result{
		Text:      text,
		Words:     words,
		Tokens:    tokens,
		Keywords:  topKeywords(tokens, n.topN),
		Sentences: SplitSentences(raw),
	}
}

// transform chains carry state, so each call gets its own.
func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold lowercases, strips combining marks (å→a, ö→o, é→e), turns everything that
// is not a letter or digit into a space and collapses whitespace.
func Fold(s string) string {
	folded, _, err := transform.String(newFolder(), strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		switch {
		case r == 'ø':
			r = 'o'
		case r == 'æ':
			r = 'a'
		case r == 'ß':
			r = 's'
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// SplitSentences splits raw text on terminal punctuation and newlines. Fragments
// without any letters are dropped.
func SplitSentences(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.IndexFunc(p, unicode.IsLetter) >= 0 {
			out = append(out, p)
		}
	}
	return out
}

func topKeywords(tokens []string, n int) []string {
	if len(tokens) == 0 {
		return nil
	}
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// ContainsPhrase reports whether a folded phrase occurs in folded text on word
// boundaries.
func ContainsPhrase(text, phrase string) bool {
	return CountPhrase(text, phrase) > 0
}

// CountPhrase counts non-overlapping word-bounded occurrences of a folded phrase.
func CountPhrase(text, phrase string) int {
	if text == "" || phrase == "" {
		return 0
	}
	return CountWords(strings.Fields(text), strings.Fields(phrase))
}

// CountWords counts non-overlapping occurrences of phrase inside words.
func CountWords(words, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return 0
	}
	count := 0
	for i := 0; i+len(phrase) <= len(words); {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			count++
			i += len(phrase)
			continue
		}
		i++
	}
	return count
}
