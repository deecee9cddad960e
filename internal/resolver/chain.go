package resolver

import (
	"regexp"
	"strings"

	"brdchat/internal/brd"
)

// TitleRule is one way a query can name a section title. Both arguments are lower-cased.
type TitleRule interface {
	Name() string
	Match(query, title string) bool
}

// TitleChain tries rules in order for each section; the first section any rule accepts wins.
type TitleChain struct {
	rules []TitleRule
}

func NewTitleChain(rules ...TitleRule) *TitleChain {
	return &TitleChain{rules: rules}
}

func NewDefaultChain() *TitleChain {
	return NewTitleChain(
		exactRule{},
		containsRule{},
		cleanedRule{},
		keywordSubsetRule{},
		reverseKeywordRule{},
	)
}

// Match returns the index of the first candidate title the query matches and
// the name of the rule that accepted it, or -1.
func (c *TitleChain) Match(query string, titles []string) (int, string) {
	q := normalizeQuery(query)
	if q == "" {
		return -1, ""
	}
	for i, t := range titles {
		title := strings.ToLower(strings.TrimSpace(t))
		for _, r := range c.rules {
			if r.Match(q, title) {
				return i, r.Name()
			}
		}
	}
	return -1, ""
}

func normalizeQuery(s string) string {
	return brd.CleanTitle(strings.ToLower(strings.TrimSpace(s)))
}

var wordPattern = regexp.MustCompile(`\w+`)

func words(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(s, -1) {
		out[w] = true
	}
	return out
}

type exactRule struct{}

func (exactRule) Name() string { return "exact" }
func (exactRule) Match(q, title string) bool {
	return q == title
}

type containsRule struct{}

func (containsRule) Name() string { return "contains" }
func (containsRule) Match(q, title string) bool {
	return title != "" && (strings.Contains(title, q) || strings.Contains(q, title))
}

type cleanedRule struct{}

func (cleanedRule) Name() string { return "cleaned" }
func (cleanedRule) Match(q, title string) bool {
	clean := brd.CleanTitle(title)
	return clean == q || strings.Contains(clean, q)
}

type keywordSubsetRule struct{}

func (keywordSubsetRule) Name() string { return "keywords" }
func (keywordSubsetRule) Match(q, title string) bool {
	qw := words(q)
	if len(qw) == 0 {
		return false
	}
	tw := words(brd.CleanTitle(title))
	for w := range qw {
		if !tw[w] {
			return false
		}
	}
	return true
}

type reverseKeywordRule struct{}

func (reverseKeywordRule) Name() string { return "reverse-keywords" }
func (reverseKeywordRule) Match(q, title string) bool {
	for w := range words(brd.CleanTitle(title)) {
		if len(w) > 3 && strings.Contains(q, w) {
			return true
		}
	}
	return false
}
