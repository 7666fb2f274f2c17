// Package moderation decides whether comment text is acceptable.
package moderation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinContentLength = 2
	MaxContentLength = 1000
	// FloodThreshold is the run length of one repeated character that counts as flooding.
	FloodThreshold = 11
	MaxLinks       = 2
)

var linkPattern = regexp.MustCompile(`https?://`)

// Input is what the rules look at.
type Input struct {
	Content string
	Author  string
	Email   string
}

// Rule is one named spam check.
type Rule struct {
	Name   string
	Reason string
	Match  func(Input) bool
}

// Verdict is the result of Evaluate. Rule and Reason are empty when Spam is false.
type Verdict struct {
	Spam   bool   `json:"spam"`
	Rule   string `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Classifier holds a lowercased denylist and an ordered rule set. It is read-only
// after construction and safe for concurrent use.
type Classifier struct {
	words []string
	rules []Rule
}

// NewClassifier builds a classifier from the default denylist plus extraWords.
func NewClassifier(extraWords ...string) *Classifier {
	seen := make(map[string]struct{})
	words := make([]string, 0, len(defaultWords)+len(extraWords))
	for _, w := range append(DefaultWords(), extraWords...) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	c := &Classifier{words: words}
	c.rules = DefaultRules(c)
	return c
}

// Words returns the effective denylist, lowercased.
func (c *Classifier) Words() []string {
	out := make([]string, len(c.words))
	copy(out, c.words)
	return out
}

// ContainsSensitiveWords reports whether text contains any denylisted word, ignoring case.
func (c *Classifier) ContainsSensitiveWords(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range c.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Mask replaces every denylisted word in text with one asterisk per character.
func (c *Classifier) Mask(text string) string {
	for _, w := range c.words {
		text = replaceFold(text, w, strings.Repeat("*", utf8.RuneCountInString(w)))
	}
	return text
}

// Evaluate runs the rules in order and reports the first one that matches.
func (c *Classifier) Evaluate(in Input) Verdict {
	for _, r := range c.rules {
		if r.Match(in) {
			return Verdict{Spam: true, Rule: r.Name, Reason: r.Reason}
		}
	}
	return Verdict{}
}

// IsSpam is shorthand for Evaluate(...).Spam.
func (c *Classifier) IsSpam(content, author, email string) bool {
	return c.Evaluate(Input{Content: content, Author: author, Email: email}).Spam
}

// DefaultRules returns the ordered rule set backed by c's denylist.
func DefaultRules(c *Classifier) []Rule {
	return []Rule{
		{Name: "length", Reason: "content too short or too long", Match: func(in Input) bool {
			n := utf8.RuneCountInString(in.Content)
			return n < MinContentLength || n > MaxContentLength
		}},
		{Name: "sensitive_content", Reason: "content contains sensitive words", Match: func(in Input) bool {
			return c.ContainsSensitiveWords(in.Content)
		}},
		{Name: "char_flood", Reason: "character flooding detected", Match: func(in Input) bool {
			return HasCharFlood(in.Content)
		}},
		{Name: "too_many_links", Reason: "too many links", Match: func(in Input) bool {
			return CountLinks(in.Content) > MaxLinks
		}},
		{Name: "sensitive_author", Reason: "author contains sensitive words", Match: func(in Input) bool {
			return c.ContainsSensitiveWords(in.Author)
		}},
	}
}

// HasCharFlood reports whether one character repeats FloodThreshold or more times in a row.
// RE2 has no backreferences, so this is a linear scan.
func HasCharFlood(text string) bool {
	count := 0
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
		} else {
			prev = r
			count = 1
		}
		if count >= FloodThreshold {
			return true
		}
	}
	return false
}

// CountLinks counts http:// and https:// occurrences.
func CountLinks(text string) int {
	return len(linkPattern.FindAllStringIndex(text, -1))
}

// replaceFold replaces case-insensitive occurrences of lowerOld in s.
func replaceFold(s, lowerOld, repl string) string {
	if lowerOld == "" {
		return s
	}
	var b strings.Builder
	for {
		idx := indexFold(s, lowerOld)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(repl)
		s = s[idx+matchLen(s[idx:], lowerOld):]
	}
}

// indexFold finds lowerOld in s comparing rune by rune with simple lowercasing.
func indexFold(s, lowerOld string) int {
	for i := range s {
		if matchLen(s[i:], lowerOld) > 0 {
			return i
		}
	}
	return -1
}

// matchLen returns the byte length of the prefix of s that equals lowerOld ignoring case, or 0.
func matchLen(s, lowerOld string) int {
	n := 0
	for _, want := range lowerOld {
		if n >= len(s) {
			return 0
		}
		got, size := utf8.DecodeRuneInString(s[n:])
		if unicode.ToLower(got) != want {
			return 0
		}
		n += size
	}
	return n
}
