package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"brdchat/internal/resolver"
)

// DefaultRules returns the cascade in priority order. Specific forms (an
// explicit number followed by a colon) come before looser ones so that an
// instruction mentioning "section" is not misread as a section reference.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "greeting", Match: matchGreeting},
		{Name: "list", Match: matchList},
		{Name: "show-updated", Match: matchShowUpdated},
		{Name: "show-number", Match: matchShowNumber},
		{Name: "query", Match: matchQuery},
		{Name: "show-title", Match: matchShowTitle},
		edit("update-number-colon", updateNumberColon, numberInstruction),
		edit("update-title-colon", updateTitleColon, titleInstruction),
		edit("update-number", updateNumber, numberInstruction),
		edit("update-title", updateTitle, titleInstruction),
		edit("update-in-number", updateInNumber, numberInstruction),
		edit("update-in-title", updateInTitle, titleInstruction),
		edit("section-number-verb", sectionNumberVerb, numberInstruction),
		edit("section-title-verb", sectionTitleVerb, titleInstruction),
		edit("change-to-in-number", changeToInNumber, changeInstruction),
		edit("change-to-in-title", changeToInTitle, changeInstruction),
		{Name: "change-to-section-number", Match: matchChangeWithSectionNumber},
		{Name: "change-to-section-title", Match: matchChangeWithSectionTitle},
		edit("section-number-text", sectionNumberText, numberInstruction),
		edit("verb-section-title-text", verbSectionTitleText, titleInstruction),
		{Name: "here", Match: matchHere},
	}
}

var (
	editVerb = regexp.MustCompile(`(?i)\b(?:change|replace|update|modify|edit)\b`)

	// contentEdit finds an edit verb that has an object, as in "change the
	// owner", rather than one that ends a question ("which section did I update?").
	contentEdit = regexp2.MustCompile(
		`\b(?:change|replace|update|modify|edit)\b(?!\s*(?:$|[?.!,]|(?:i|it|me|so|yet|in|till|until|recently|before|now|today)\b))`,
		regexp2.IgnoreCase)

	questionStart = regexp.MustCompile(`(?i)^(?:what|which|where|when|why|how|tell)\s+`)
	updateWord    = regexp.MustCompile(`(?i)\b(?:updat(?:e|ed|es)|chang(?:e|ed|es)|modif(?:y|ied|ies)|edit(?:ed|s)?)\b`)
	trailingPunct = regexp.MustCompile(`[\s.!?]+$`)

	showUpdated      = regexp.MustCompile(`(?i)^show\b.*\bupdated\b`)
	showNumberStart  = regexp.MustCompile(`(?i)^show\s+(?:me\s+)?(?:section\s+)?(\d+)\b`)
	showNumberInside = regexp.MustCompile(`(?i)\bshow\b.*?\bsection\s+(\d+)\b`)
	showTitle        = regexp.MustCompile(`(?i)^show\s+(?:me\s+)?(?:the\s+)?(?:section\s+)?(.+?)(?:\s+section)?$`)

	updateNumberColon    = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+(?:section\s+)?(\d+)\s*:\s*(.+)`)
	updateTitleColon     = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+section\s+([a-z][a-z ]*?)\s*:\s*(.+)`)
	updateNumber         = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+(?:section\s+)?(\d+)\s+(.+)`)
	updateTitle          = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+section\s+([a-z]+)\s+(.+)`)
	updateInNumber       = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+in\s+section\s+(\d+)\s*:?\s+(.+)`)
	updateInTitle        = regexp.MustCompile(`(?is)\b(?:update|modify|edit)\s+in\s+section\s+([a-z]+)\s*:?\s+(.+)`)
	sectionNumberVerb    = regexp.MustCompile(`(?is)(?:\bin\s+)?\bsection\s+(\d+)\b.*?\b((?:change|replace|update|modify|edit)\s+.+)`)
	sectionTitleVerb     = regexp.MustCompile(`(?is)(?:\bin\s+)?\bsection\s+([a-z][a-z ]*?)\s*[,:]?\s+((?:change|replace|update|modify|edit)\s+.+)`)
	changeToInNumber     = regexp.MustCompile(`(?is)\b(?:change|replace|update|modify|edit)\s+(.+?)\s+(?:to|with)\s+(.+?)\s+in\s+(?:section\s+)?(\d+)\b`)
	changeToInTitle      = regexp.MustCompile(`(?is)\b(?:change|replace|update|modify|edit)\s+(.+?)\s+(?:to|with)\s+(.+?)\s+in\s+section\s+([a-z][a-z ]*[a-z])`)
	sectionNumberText    = regexp.MustCompile(`(?is)(?:\bin\s+)?\bsection\s+(\d+)\s*:?\s+(.+)`)
	verbSectionTitleText = regexp.MustCompile(`(?is)\b(?:update|modify|edit|change|replace)\s+(?:in\s+)?section\s+([a-z]{3,}[a-z ]*?)\s+(.+)`)

	changeTo        = regexp.MustCompile(`(?is)\bchange\s+(.+?)\s+to\s+(.+)`)
	sectionNumberAt = regexp.MustCompile(`(?i)\bsection\s+(\d+)\b`)
	sectionTitleAt  = regexp.MustCompile(`(?i)\bsection\s+([a-z][a-z ]*[a-z])`)
	sectionTail     = regexp.MustCompile(`(?i)[,;]?\s*(?:in\s+)?section\s+\S+.*$`)

	hereWord   = regexp.MustCompile(`(?i)\s*\bhere\b`)
	verbToWith = regexp.MustCompile(`(?is)\b(?:change|replace|update|modify|edit)\s+(.+?)\s+(?:to|with)\s+(.+)`)
	verbPhrase = regexp.MustCompile(`(?is)\b((?:change|replace|update|modify|edit)\s+.+)`)
)

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "help": true, "?": true, "help me": true,
}

var listForms = map[string]bool{
	"list": true, "list sections": true, "list all sections": true, "show all sections": true,
	"show sections": true, "show all": true, "sections": true,
}

var queryPhrases = []string{
	"what updated", "which section", "what changes", "what did i", "what have i",
	"show me what", "tell me what", "what sections", "which sections",
}

// stopWords cannot start a section title.
var stopWords = map[string]bool{
	"i": true, "have": true, "what": true, "which": true, "where": true, "when": true,
	"why": true, "how": true, "all": true, "updated": true, "this": true, "that": true,
	"it": true, "me": true, "the": true,
}

// LooksLikeEdit reports whether text contains an edit verb as a whole word.
func LooksLikeEdit(text string) bool {
	return editVerb.MatchString(text)
}

// IsQuery reports whether text is a question about the document rather than
// an edit, even when it mentions words like "change".
func IsQuery(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	question := containsAny(lower, queryPhrases) ||
		(questionStart.MatchString(lower) && (strings.Contains(lower, "updated") || strings.Contains(lower, "section")))
	if !question {
		return false
	}
	directed, err := contentEdit.MatchString(lower)
	return err == nil && !directed
}

func normalized(text string) string {
	return strings.ToLower(trailingPunct.ReplaceAllString(strings.TrimSpace(text), ""))
}

func matchGreeting(text string) (Parsed, bool) {
	return Parsed{Intent: IntentGreeting}, greetings[strings.ToLower(strings.TrimSpace(text))]
}

func matchList(text string) (Parsed, bool) {
	return Parsed{Intent: IntentList}, listForms[normalized(text)]
}

func matchShowUpdated(text string) (Parsed, bool) {
	lower := normalized(text)
	if !showUpdated.MatchString(lower) || strings.Contains(lower, "what") || strings.Contains(lower, "which") {
		return Parsed{}, false
	}
	return Parsed{Intent: IntentShowUpdated, Reference: resolver.Updated()}, true
}

func matchShowNumber(text string) (Parsed, bool) {
	m := showNumberStart.FindStringSubmatch(text)
	if m == nil && !LooksLikeEdit(text) {
		m = showNumberInside.FindStringSubmatch(text)
	}
	if m == nil {
		return Parsed{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{Intent: IntentShow, Reference: resolver.Number(n)}, true
}

func matchQuery(text string) (Parsed, bool) {
	if !IsQuery(text) {
		return Parsed{}, false
	}
	return Parsed{Intent: IntentQuery, AboutUpdates: updateWord.MatchString(text)}, true
}

func matchShowTitle(text string) (Parsed, bool) {
	if LooksLikeEdit(text) {
		return Parsed{}, false
	}
	m := showTitle.FindStringSubmatch(trailingPunct.ReplaceAllString(text, ""))
	if m == nil {
		return Parsed{}, false
	}
	ref, ok := titleRef(m[1])
	if !ok {
		return Parsed{}, false
	}
	return Parsed{Intent: IntentShow, Reference: ref}, true
}

// builder turns submatches into a reference and instruction.
type builder func(m []string) (resolver.Reference, string, bool)

// edit wraps a single-pattern edit rule.
func edit(name string, re *regexp.Regexp, build builder) Rule {
	return Rule{
		Name: name,
		Match: func(text string) (Parsed, bool) {
			if !LooksLikeEdit(text) {
				return Parsed{}, false
			}
			m := re.FindStringSubmatch(text)
			if m == nil {
				return Parsed{}, false
			}
			ref, instruction, ok := build(m)
			if !ok {
				return Parsed{}, false
			}
			return Parsed{Intent: IntentEdit, Reference: ref, Instruction: instruction}, true
		},
	}
}

func numberInstruction(m []string) (resolver.Reference, string, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return resolver.Reference{}, "", false
	}
	instruction := strings.TrimSpace(m[2])
	return resolver.Number(n), instruction, instruction != ""
}

func titleInstruction(m []string) (resolver.Reference, string, bool) {
	ref, ok := titleRef(m[1])
	instruction := strings.TrimSpace(m[2])
	return ref, instruction, ok && instruction != ""
}

func changeInstruction(m []string) (resolver.Reference, string, bool) {
	var ref resolver.Reference
	if n, err := strconv.Atoi(m[3]); err == nil {
		ref = resolver.Number(n)
	} else {
		var ok bool
		if ref, ok = titleRef(m[3]); !ok {
			return resolver.Reference{}, "", false
		}
	}
	return ref, changeText(m[1], m[2]), true
}

func changeText(from, to string) string {
	return fmt.Sprintf("change %s to %s", strings.TrimSpace(from), strings.TrimSpace(to))
}

func matchChangeWithSectionNumber(text string) (Parsed, bool) {
	c := changeTo.FindStringSubmatch(text)
	s := sectionNumberAt.FindStringSubmatch(text)
	if c == nil || s == nil {
		return Parsed{}, false
	}
	n, err := strconv.Atoi(s[1])
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{
		Intent:      IntentEdit,
		Reference:   resolver.Number(n),
		Instruction: changeText(c[1], sectionTail.ReplaceAllString(c[2], "")),
	}, true
}

func matchChangeWithSectionTitle(text string) (Parsed, bool) {
	c := changeTo.FindStringSubmatch(text)
	s := sectionTitleAt.FindStringSubmatch(text)
	if c == nil || s == nil {
		return Parsed{}, false
	}
	ref, ok := titleRef(s[1])
	if !ok {
		return Parsed{}, false
	}
	return Parsed{
		Intent:      IntentEdit,
		Reference:   ref,
		Instruction: changeText(c[1], sectionTail.ReplaceAllString(c[2], "")),
	}, true
}

// matchHere handles edits aimed at whatever section is on screen.
func matchHere(text string) (Parsed, bool) {
	if !LooksLikeEdit(text) || !hereWord.MatchString(text) {
		return Parsed{}, false
	}
	stripped := trailingPunct.ReplaceAllString(hereWord.ReplaceAllString(text, ""), "")
	if m := verbToWith.FindStringSubmatch(stripped); m != nil {
		return Parsed{Intent: IntentEdit, Reference: resolver.Here(), Instruction: changeText(m[1], m[2])}, true
	}
	if m := verbPhrase.FindStringSubmatch(stripped); m != nil {
		return Parsed{Intent: IntentEdit, Reference: resolver.Here(), Instruction: strings.TrimSpace(m[1])}, true
	}
	return Parsed{}, false
}

func titleRef(s string) (resolver.Reference, bool) {
	s = strings.TrimSpace(s)
	fields := strings.Fields(strings.ToLower(s))
	if len(s) < 3 || len(fields) == 0 || stopWords[fields[0]] {
		return resolver.Reference{}, false
	}
	return resolver.Title(s), true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
