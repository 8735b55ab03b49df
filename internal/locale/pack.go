// Package locale holds the data-driven phrase tables used by the text
// analyzers and the message templates used for explanations. Packs are yaml so
// a new locale can be dropped in without touching scoring code.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"voice-rewards-go/internal/textnorm"
)

//go:embed packs/*.yaml
var packFS embed.FS

var ErrUnknownLocale = errors.New("unknown locale")

// PhraseCategory is a weighted list of phrases. Each hit adds Weight, the
// category total never exceeds Cap.
type PhraseCategory struct {
	Name    string   `yaml:"name"`
	Weight  float64  `yaml:"weight"`
	Cap     float64  `yaml:"cap"`
	Phrases []string `yaml:"phrases"`

	folded [][]string
}

// Hits counts phrase occurrences in folded words.
func (c *PhraseCategory) Hits(words []string) int {
	n := 0
	for _, p := range c.folded {
		n += textnorm.CountWords(words, p)
	}
	return n
}

// Matched returns the folded phrases that occur at least once.
func (c *PhraseCategory) Matched(words []string) []string {
	var out []string
	for _, p := range c.folded {
		if textnorm.CountWords(words, p) > 0 {
			out = append(out, strings.Join(p, " "))
		}
	}
	return out
}

// Score is min(hits × weight, cap).
func (c *PhraseCategory) Score(words []string) float64 {
	s := float64(c.Hits(words)) * c.Weight
	if c.Cap > 0 && s > c.Cap {
		return c.Cap
	}
	return s
}

type TemplatePattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

func (t *TemplatePattern) Match(folded string) bool {
	return t.re != nil && t.re.MatchString(folded)
}

type Pack struct {
	Locale           string            `yaml:"locale"`
	DecimalSeparator string            `yaml:"decimal_separator"`
	CurrencySuffix   string            `yaml:"currency_suffix"`
	StopWords        []string          `yaml:"stop_words"`
	NumberWords      []string          `yaml:"number_words"`
	GenericPhrases   PhraseCategory    `yaml:"generic_phrases"`
	TemplatePatterns []TemplatePattern `yaml:"template_patterns"`
	Concreteness     struct {
		Categories []PhraseCategory `yaml:"categories"`
		Vague      PhraseCategory   `yaml:"vague"`
	} `yaml:"concreteness"`
	Depth struct {
		Categories  []PhraseCategory `yaml:"categories"`
		Superficial PhraseCategory   `yaml:"superficial"`
	} `yaml:"depth"`
	Messages map[string]string `yaml:"messages"`

	normalizer  *textnorm.Normalizer
	numberWords map[string]struct{}
}

// Load reads one of the embedded packs ("sv", "en").
func Load(name string) (*Pack, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	raw, err := packFS.ReadFile("packs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocale, name)
	}
	return Parse(raw)
}

// LoadFile reads a pack from disk, for locales shipped outside the binary.
func LoadFile(path string) (*Pack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locale pack: %w", err)
	}
	return Parse(raw)
}

// MustLoad is Load for embedded packs known to exist.
func MustLoad(name string) *Pack {
	p, err := Load(name)
	if err != nil {
		panic(err)
	}
	return p
}

func Parse(raw []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse locale pack: %w", err)
	}
	if p.Locale == "" {
		return nil, fmt.Errorf("parse locale pack: missing locale")
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Pack) compile() error {
	p.normalizer = textnorm.New(p.StopWords, textnorm.DefaultMinTokenLength, textnorm.DefaultTopKeywords)
	p.numberWords = make(map[string]struct{}, len(p.NumberWords))
	for _, w := range p.NumberWords {
		p.numberWords[textnorm.Fold(w)] = struct{}{}
	}
	foldCategory(&p.GenericPhrases)
	foldCategory(&p.Concreteness.Vague)
	foldCategory(&p.Depth.Superficial)
	for i := range p.Concreteness.Categories {
		foldCategory(&p.Concreteness.Categories[i])
	}
	for i := range p.Depth.Categories {
		foldCategory(&p.Depth.Categories[i])
	}
	for i := range p.TemplatePatterns {
		re, err := regexp.Compile(p.TemplatePatterns[i].Pattern)
		if err != nil {
			return fmt.Errorf("template pattern %q: %w", p.TemplatePatterns[i].Name, err)
		}
		p.TemplatePatterns[i].re = re
	}
	if p.DecimalSeparator == "" {
		p.DecimalSeparator = "."
	}
	return nil
}

func foldCategory(c *PhraseCategory) {
	c.folded = c.folded[:0]
	seen := map[string]bool{}
	for _, ph := range c.Phrases {
		f := textnorm.Fold(ph)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		c.folded = append(c.folded, strings.Fields(f))
	}
}

// Normalizer returns the text normalizer configured with this pack's stop words.
func (p *Pack) Normalizer() *textnorm.Normalizer {
	return p.normalizer
}

// IsNumber reports whether a folded word is a digit run or a number word.
func (p *Pack) IsNumber(word string) bool {
	if word == "" {
		return false
	}
	if _, ok := p.numberWords[word]; ok {
		return true
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Message returns the template for key, or the key itself when missing.
func (p *Pack) Message(key string) string {
	if m, ok := p.Messages[key]; ok {
		return m
	}
	return key
}

// FormatDecimal renders v with the pack's decimal separator.
func (p *Pack) FormatDecimal(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if p.DecimalSeparator != "." {
		s = strings.Replace(s, ".", p.DecimalSeparator, 1)
	}
	return s
}

// FormatMinor renders minor currency units with the pack's separator and suffix.
func (p *Pack) FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%s%d%s%02d", sign, amount/100, p.DecimalSeparator, amount%100)
	if p.CurrencySuffix != "" {
		s += " " + p.CurrencySuffix
	}
	return s
}
