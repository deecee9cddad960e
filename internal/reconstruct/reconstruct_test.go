package reconstruct

import (
	"context"
	"errors"
	"testing"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
	"brdchat/internal/generation"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	got, ok := ExtractJSON("Here you go:\n```json\n{\"sections\": []}\n```\nThanks")
	require.True(t, ok)
	assert.Equal(t, `{"sections": []}`, got)

	got, ok = ExtractJSON(`Sure! {"a": "{not a brace}"} and {"b": 1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "{not a brace}"}`, got)

	got, ok = ExtractJSON("```json\n{\"sections\":[{\"title\":\"A\"")
	require.True(t, ok)
	assert.Equal(t, `{"sections":[{"title":"A"`, got)

	_, ok = ExtractJSON("no object at all")
	assert.False(t, ok)
}

func TestRepair_Stages(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		stage string
	}{
		{"valid", `{"sections":[]}`, "direct"},
		{"trailing commas", `{"sections":[{"title":"A","content":[],},]}`, "trailing-commas"},
		{"truncated brackets", `{"sections":[{"title":"A","content":[`, "balance"},
		{"truncated string", `{"sections":[{"title":"A","content":[{"type":"paragraph","text":"abc`, "balance"},
		{"truncated key", `{"sections":[{"title":"A","content":[{"type":"paragraph","text":"x"}]},{"title":"B","con`, "safe-cut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Repair(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.stage, res.Stage)
			assert.Contains(t, res.Value, "sections")
		})
	}
}

func TestPipeline_TolerantIgnoresTrailingText(t *testing.T) {
	res, err := DefaultPipeline().Run(`{"a":1} and some commentary`)
	require.NoError(t, err)
	assert.Equal(t, "tolerant", res.Stage)
	assert.Equal(t, float64(1), res.Value["a"])
}

func TestPipeline_Failure(t *testing.T) {
	_, err := DefaultPipeline().Run("nonsense")
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.MalformedGenerationJSON))

	_, err = Repair("the model said no")
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.MalformedGenerationJSON))
	assert.Contains(t, err.Error(), "no JSON object")

	assert.Equal(t, []string{"direct", "tolerant", "trailing-commas", "balance", "safe-cut"}, DefaultPipeline().Stages())
}

func TestParseDocument_TruncatedKeepsEarlierSections(t *testing.T) {
	doc, stage, err := ParseDocument(`{"sections":[{"title":"A","content":[{"type":"paragraph","text":"x"}]},{"title":"B","con`)
	require.NoError(t, err)
	assert.Equal(t, "safe-cut", stage)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "A", doc.Sections[0].Title)
	assert.Equal(t, []brd.Block{brd.Paragraph("x")}, doc.Sections[0].Content)
	assert.Equal(t, []brd.Block{}, doc.Sections[1].Content)
}

func TestParseDocument_RequiresSections(t *testing.T) {
	_, _, err := ParseDocument(`{"title":"A"}`)
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.MalformedGenerationJSON))
}

func TestParseSection(t *testing.T) {
	sec, stage, err := ParseSection("```json\n{\"title\":\"Stakeholders\",\"content\":[{\"type\":\"bullet\",\"items\":[\"Aman\"]}]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "direct", stage)
	assert.Equal(t, "Stakeholders", sec.Title)
	assert.Equal(t, []brd.Block{brd.Bullets("Aman")}, sec.Content)

	_, _, err = ParseSection(`{"title":"Stakeholders"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing content")

	sec, _, err = ParseSection(`{"title":"Scope","content":null}`)
	require.NoError(t, err)
	assert.NotNil(t, sec.Content)
}

func TestParseSection_TruncatedInsideBlockType(t *testing.T) {
	sec, stage, err := ParseSection(`{"title":"Scope","content":[{"type":"paragraph","text":"Portal"},{"type":"bul`)
	require.NoError(t, err)
	assert.Equal(t, "safe-cut", stage)
	assert.Equal(t, "Scope", sec.Title)
	assert.Equal(t, []brd.Block{brd.Paragraph("Portal")}, sec.Content)
}

func TestParseDocument_TruncatedInsideBlockType(t *testing.T) {
	doc, stage, err := ParseDocument(`{"sections":[{"title":"A","content":[{"type":"paragraph","text":"x"},{"type":"tab`)
	require.NoError(t, err)
	assert.Equal(t, "safe-cut", stage)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, []brd.Block{brd.Paragraph("x")}, doc.Sections[0].Content)
}

func TestParse_SkipsBracesInLeadingProse(t *testing.T) {
	sec, stage, err := ParseSection(`Note {draft}: {"title":"Scope","content":[{"type":"bullet","items":["Portal"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, "direct", stage)
	assert.Equal(t, "Scope", sec.Title)
	assert.Equal(t, []brd.Block{brd.Bullets("Portal")}, sec.Content)

	res, err := Repair(`Draft {v2} follows: {"sections":[]}`)
	require.NoError(t, err)
	assert.Contains(t, res.Value, "sections")

	assert.Equal(t, []string{`{draft}`, `{"a":1}`, `{"b":`}, jsonCandidates(`x {draft} y {"a":1} z {"b":`))
}

const sampleText = `Business Requirements Document (BRD)

AI-Powered Onboarding BRD

1. Executive Summary

Streamline onboarding for new hires.

SECTION 2: Stakeholders

| Name | Role |
|---|---|
| Sarah | Sponsor |

3. Steps

- Collect documents
- Verify identity
17. Provision laptop
Name	Owner
`

func TestFromText(t *testing.T) {
	doc, err := FromText(sampleText)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 4)
	assert.True(t, doc.HasTitleSection())
	assert.Equal(t, "AI-Powered Onboarding BRD", doc.Sections[0].Title)
	assert.Equal(t, "Executive Summary", doc.Sections[1].Title)
	assert.Equal(t, []brd.Block{brd.Paragraph("Streamline onboarding for new hires.")}, doc.Sections[1].Content)

	assert.Equal(t, "Stakeholders", doc.Sections[2].Title)
	assert.Equal(t, []brd.Block{brd.Table([]string{"Name", "Role"}, []string{"Sarah", "Sponsor"})}, doc.Sections[2].Content)

	assert.Equal(t, "Steps", doc.Sections[3].Title)
	assert.Equal(t, []brd.Block{
		brd.Bullets("Collect documents", "Verify identity"),
		brd.Paragraph("17. Provision laptop"),
		brd.Table([]string{"Name", "Owner"}),
	}, doc.Sections[3].Content)
}

func TestFromText_WithoutTitleKeepsNumbering(t *testing.T) {
	doc, err := FromText("1. Scope\n\nIn scope: web.\n\n2. Risks\n\n- Vendor delay\n")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "1. Scope", doc.Sections[0].Title)
	assert.False(t, doc.HasTitleSection())
	assert.Len(t, doc.ContentSections(), 2)
}

func TestFromText_MarkdownHeaders(t *testing.T) {
	doc, err := FromText("## 1. Executive Summary\n\nSummary text that is long enough.\n\n## 2. Scope\n\nWeb only.\n")
	require.NoError(t, err)
	require.Len(t, doc.ContentSections(), 2)
	assert.Equal(t, "Scope", brd.CleanTitle(doc.ContentSections()[1].Title))
}

func TestFromText_NoSections(t *testing.T) {
	_, err := FromText("Just some prose without any structure.")
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.ReconstructionError))
}

func TestFromText_RoundTrip(t *testing.T) {
	doc := &brd.Document{Sections: []brd.Section{
		{Title: "AI-Powered Onboarding BRD", Content: []brd.Block{}},
		{Title: "Executive Summary", Content: []brd.Block{brd.Paragraph("Faster onboarding.")}},
		{Title: "Stakeholders", Content: []brd.Block{
			brd.Table([]string{"Name", "Role"}, []string{"Sarah", "Sponsor"}),
			brd.Bullets("Legal review", "IT sign-off"),
		}},
	}}

	got, err := FromText(brd.RenderText(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestFromText_RoundTripKeepsTitleContent(t *testing.T) {
	doc := &brd.Document{Sections: []brd.Section{
		{Title: "AI-Powered Onboarding BRD", Content: []brd.Block{
			brd.Paragraph("Prepared by the PMO."),
			brd.Bullets("Draft", "Internal"),
		}},
		{Title: "Scope", Content: []brd.Block{brd.Paragraph("Web portal.")}},
	}}

	got, err := FromText(brd.RenderText(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestReconstructor_Generation(t *testing.T) {
	var prompt string
	gen := generation.ClientFunc(func(_ context.Context, p string, maxTokens int) (string, error) {
		prompt = p
		assert.Equal(t, 1024, maxTokens)
		return "```json\n{\"sections\":[{\"title\":\"Scope\",\"content\":[{\"type\":\"paragraph\",\"text\":\"Web\"}]}]}\n```", nil
	})
	logger, _ := test.NewNullLogger()
	r := New(gen, WithLogger(logger), WithMaxTokens(1024))

	doc, method, err := r.Reconstruct(context.Background(), "1. Scope\n\nWeb")
	require.NoError(t, err)
	assert.Equal(t, MethodGeneration, method)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Scope", doc.Sections[0].Title)
	assert.Contains(t, prompt, "JSON converter")
	assert.Contains(t, prompt, "1. Scope\n\nWeb")
}

func TestReconstructor_FallsBackToText(t *testing.T) {
	gen := generation.ClientFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("throttled")
	})
	logger, hook := test.NewNullLogger()
	r := New(gen, WithLogger(logger))

	doc, method, err := r.Reconstruct(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, MethodHeuristic, method)
	assert.Len(t, doc.ContentSections(), 3)
	assert.NotEmpty(t, hook.Entries)
}

func TestReconstructor_WithoutClient(t *testing.T) {
	doc, method, err := New(nil).Reconstruct(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, MethodHeuristic, method)
	assert.Len(t, doc.Sections, 4)
}

func TestReconstructor_Failure(t *testing.T) {
	gen := generation.ClientFunc(func(context.Context, string, int) (string, error) {
		return "I cannot do that", nil
	})
	logger, _ := test.NewNullLogger()
	_, _, err := New(gen, WithLogger(logger)).Reconstruct(context.Background(), "prose only")
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.ReconstructionError))

	_, _, err = New(nil).Reconstruct(context.Background(), "  ")
	assert.True(t, brderr.Is(err, brderr.ReconstructionError))
}
