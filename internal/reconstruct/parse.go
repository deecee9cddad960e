package reconstruct

import (
	"encoding/json"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
)

// ParseDocument repairs a model response and decodes it as a Document. The
// object must carry a "sections" array of decodable sections.
func ParseDocument(raw string) (*brd.Document, string, error) {
	res, err := repairAs(raw, documentShape)
	if err != nil {
		return nil, "", err
	}
	var doc brd.Document
	if err := remarshal(res.Value, &doc); err != nil {
		return nil, res.Stage, brderr.Wrap(brderr.MalformedGenerationJSON, err, "Generated JSON does not describe a document")
	}
	doc.Normalize()
	return &doc, res.Stage, nil
}

// ParseSection repairs a model response and decodes it as one Section. The
// object must carry "title" and "content".
func ParseSection(raw string) (brd.Section, string, error) {
	res, err := repairAs(raw, sectionShape)
	if err != nil {
		return brd.Section{}, "", err
	}
	var sec brd.Section
	if err := remarshal(res.Value, &sec); err != nil {
		return brd.Section{}, res.Stage, brderr.Wrap(brderr.MalformedGenerationJSON, err, "Invalid section structure in AI response")
	}
	if sec.Content == nil {
		sec.Content = []brd.Block{}
	}
	return sec, res.Stage, nil
}

// repairAs runs the pipeline with shape as a check, so a stage that parses
// into the wrong shape (a block cut inside its type, say) falls through to
// later stages. When nothing passes but the response does parse, the shape
// error is reported since it says more than a syntax error.
func repairAs(raw string, shape Check) (Result, error) {
	res, err := Repair(raw, shape)
	if err == nil {
		return res, nil
	}
	loose, looseErr := Repair(raw)
	if looseErr != nil {
		return Result{}, err
	}
	return Result{}, shape(loose.Value)
}

func documentShape(v map[string]any) error {
	if _, ok := v["sections"].([]any); !ok {
		return brderr.New(brderr.MalformedGenerationJSON, "Generated JSON has no sections array")
	}
	var doc brd.Document
	if err := remarshal(v, &doc); err != nil {
		return brderr.Wrap(brderr.MalformedGenerationJSON, err, "Generated JSON does not describe a document")
	}
	return nil
}

func sectionShape(v map[string]any) error {
	if _, ok := v["title"]; !ok {
		return brderr.New(brderr.MalformedGenerationJSON, "Invalid section structure in AI response: missing title")
	}
	if _, ok := v["content"]; !ok {
		return brderr.New(brderr.MalformedGenerationJSON, "Invalid section structure in AI response: missing content")
	}
	var sec brd.Section
	if err := remarshal(v, &sec); err != nil {
		return brderr.Wrap(brderr.MalformedGenerationJSON, err, "Invalid section structure in AI response")
	}
	return nil
}

func remarshal(v map[string]any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
