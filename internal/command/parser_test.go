package command

import (
	"testing"

	"brdchat/internal/brderr"
	"brdchat/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Edits(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		rule        string
		ref         resolver.Reference
		instruction string
	}{
		{"number with colon", "update section 2: change Sarah to Aman", "update-number-colon", resolver.Number(2), "change Sarah to Aman"},
		{"short number with colon", "update 4: add a budget owner", "update-number-colon", resolver.Number(4), "add a budget owner"},
		{"title with colon", "update section stakeholders: change sarah to aman", "update-title-colon", resolver.Title("stakeholders"), "change sarah to aman"},
		{"number without colon", "edit section 5 add churn KPI", "update-number", resolver.Number(5), "add churn KPI"},
		{"title without colon", "modify section scope drop the mobile app", "update-title", resolver.Title("scope"), "drop the mobile app"},
		{"in section number", "update in section 4 sarah to aman", "update-in-number", resolver.Number(4), "sarah to aman"},
		{"in section title", "update in section risks add vendor delay", "update-in-title", resolver.Title("risks"), "add vendor delay"},
		{"section then verb", "in section 4 change sarah to aman", "section-number-verb", resolver.Number(4), "change sarah to aman"},
		{"title then verb", "in section stakeholders change sarah to aman", "section-title-verb", resolver.Title("stakeholders"), "change sarah to aman"},
		{"change in number", "change sarah to aman in section 4", "change-to-in-number", resolver.Number(4), "change sarah to aman"},
		{"replace with in bare number", "replace Oracle with Postgres in 6", "change-to-in-number", resolver.Number(6), "change Oracle to Postgres"},
		{"update in title", "update sarah to aman in section stakeholders", "change-to-in-title", resolver.Title("stakeholders"), "change sarah to aman"},
		{"change with trailing number", "change sarah to aman, section 4", "change-to-section-number", resolver.Number(4), "change sarah to aman"},
		{"here", "change Sarah to Aman here", "here", resolver.Here(), "change Sarah to Aman"},
		{"here without target", "update the owner column here please", "here", resolver.Here(), "update the owner column please"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, IntentEdit, got.Intent)
			assert.Equal(t, tt.rule, got.Rule)
			assert.Equal(t, tt.ref, got.Reference)
			assert.Equal(t, tt.instruction, got.Instruction)
		})
	}
}

func TestParse_NonEdits(t *testing.T) {
	tests := []struct {
		text   string
		intent Intent
		ref    resolver.Reference
	}{
		{"hi", IntentGreeting, resolver.Reference{}},
		{"help me", IntentGreeting, resolver.Reference{}},
		{"list", IntentList, resolver.Reference{}},
		{"Show all sections", IntentList, resolver.Reference{}},
		{"show 4", IntentShow, resolver.Number(4)},
		{"show me section 3", IntentShow, resolver.Number(3)},
		{"can you show section 7?", IntentShow, resolver.Number(7)},
		{"show stakeholders", IntentShow, resolver.Title("stakeholders")},
		{"show me the scope section", IntentShow, resolver.Title("scope")},
		{"show me updated section", IntentShowUpdated, resolver.Updated()},
		{"show me the section I just updated", IntentShowUpdated, resolver.Updated()},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.ref, got.Reference)
			assert.Empty(t, got.Instruction)
		})
	}
}

func TestParse_Queries(t *testing.T) {
	for _, text := range []string{
		"which sections have I updated?",
		"which section did I update?",
		"what changes have I made so far",
		"show me what I updated",
		"tell me what sections changed",
	} {
		t.Run(text, func(t *testing.T) {
			got, err := Parse(text)
			require.NoError(t, err)
			assert.Equal(t, IntentQuery, got.Intent)
			assert.True(t, got.AboutUpdates)
		})
	}

	got, err := Parse("where is the scope section?")
	require.NoError(t, err)
	assert.Equal(t, IntentQuery, got.Intent)
	assert.False(t, got.AboutUpdates)
}

func TestParse_QuestionWithContentEdit(t *testing.T) {
	got, err := Parse("what if I change section 3: rename Sarah to Aman")
	require.NoError(t, err)
	assert.Equal(t, IntentEdit, got.Intent)
}

func TestParse_Ambiguous(t *testing.T) {
	_, err := Parse("change sarah to aman")
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.AmbiguousCommand))
	assert.Contains(t, err.Error(), "Could not parse update command")

	_, err = Parse("tell me a joke")
	assert.True(t, brderr.Is(err, brderr.AmbiguousCommand))

	_, err = Parse("   ")
	assert.True(t, brderr.Is(err, brderr.AmbiguousCommand))
}

func TestParse_RejectsStopWordTitles(t *testing.T) {
	_, err := Parse("in section i want to change x to y")
	require.Error(t, err)
}

func TestParser_CustomRules(t *testing.T) {
	p := NewParser(Rule{Name: "always", Match: func(string) (Parsed, bool) {
		return Parsed{Intent: IntentList}, true
	}})
	assert.Equal(t, []string{"always"}, p.Rules())
	got, err := p.Parse("anything")
	require.NoError(t, err)
	assert.Equal(t, "always", got.Rule)
	assert.Equal(t, IntentList, got.Intent)
}

func TestDefaultRules_Order(t *testing.T) {
	names := NewDefaultParser().Rules()
	index := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}
		t.Fatalf("rule %s missing", name)
		return -1
	}
	assert.Less(t, index("query"), index("update-number-colon"))
	assert.Less(t, index("update-number-colon"), index("update-number"))
	assert.Less(t, index("change-to-in-number"), index("section-number-text"))
	assert.Equal(t, "here", names[len(names)-1])
}

func TestIsQueryAndLooksLikeEdit(t *testing.T) {
	assert.False(t, LooksLikeEdit("which sections have I updated"))
	assert.True(t, LooksLikeEdit("please update it"))
	assert.True(t, IsQuery("which sections have I updated"))
	assert.False(t, IsQuery("update section 2: change Sarah to Aman"))
}

func TestParseExplicit(t *testing.T) {
	p, ok := ParseExplicit("list")
	require.True(t, ok)
	assert.Equal(t, IntentList, p.Intent)

	p, ok = ParseExplicit("show 4")
	require.True(t, ok)
	assert.Equal(t, resolver.Number(4), p.Reference)

	p, ok = ParseExplicit("update 3: add security details")
	require.True(t, ok)
	assert.Equal(t, IntentEdit, p.Intent)
	assert.Equal(t, "add security details", p.Instruction)

	_, ok = ParseExplicit("show 832")
	assert.False(t, ok)
	_, ok = ParseExplicit("summarize")
	assert.False(t, ok)
	_, ok = ParseExplicit("")
	assert.False(t, ok)
}
