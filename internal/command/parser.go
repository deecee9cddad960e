// Package command turns a chat message into an intent, a section reference
// and an edit instruction. Parsing is an ordered list of rules; the first
// rule that accepts the message wins.
package command

import (
	"strings"

	"brdchat/internal/brderr"
	"brdchat/internal/resolver"
)

type Intent int

const (
	IntentNone Intent = iota
	IntentGreeting
	IntentList
	IntentShow
	IntentShowUpdated
	IntentQuery
	IntentEdit
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentList:
		return "list"
	case IntentShow:
		return "show"
	case IntentShowUpdated:
		return "show-updated"
	case IntentQuery:
		return "query"
	case IntentEdit:
		return "edit"
	default:
		return "none"
	}
}

// Parsed is the result of a successful rule.
type Parsed struct {
	Intent      Intent
	Reference   resolver.Reference
	Instruction string
	// AboutUpdates marks a query that asks which sections were changed.
	AboutUpdates bool
	// Rule names the rule that produced this result.
	Rule string
}

// Rule is one pattern in the cascade. Match receives the trimmed message.
type Rule struct {
	Name  string
	Match func(text string) (Parsed, bool)
}

type Parser struct {
	rules []Rule
}

func NewParser(rules ...Rule) *Parser {
	return &Parser{rules: rules}
}

// NewDefaultParser returns a parser over DefaultRules.
func NewDefaultParser() *Parser {
	return NewParser(DefaultRules()...)
}

// Rules returns the rule names in evaluation order.
func (p *Parser) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// Parse runs the cascade. A message no rule accepts is reported as
// brderr.AmbiguousCommand.
func (p *Parser) Parse(text string) (Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{}, brderr.New(brderr.AmbiguousCommand, "Empty message")
	}
	for _, r := range p.rules {
		if parsed, ok := r.Match(text); ok {
			parsed.Rule = r.Name
			return parsed, nil
		}
	}
	if LooksLikeEdit(text) {
		return Parsed{}, brderr.New(brderr.AmbiguousCommand, "%s", unparsableEdit)
	}
	return Parsed{}, brderr.New(brderr.AmbiguousCommand, "No command recognized in %q", text)
}

var defaultParser = NewDefaultParser()

// Parse runs the default cascade.
func Parse(text string) (Parsed, error) {
	return defaultParser.Parse(text)
}

const unparsableEdit = "Could not parse update command. Please specify the section number or name and what to change. Examples:\n" +
	"- update section 4: change sarah to aman\n" +
	"- update section stakeholders: change sarah to aman\n" +
	"- in section 4 change sarah to aman\n" +
	"- change sarah to aman in section 4\n" +
	"- update sarah to aman in section stakeholders"
