package patch

import (
	"context"
	"fmt"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
	"brdchat/internal/generation"
	"brdchat/internal/reconstruct"
	"brdchat/internal/resolver"
	"brdchat/internal/tracker"

	"github.com/sirupsen/logrus"
)

const DefaultMaxTokens = 4096

// Result is the outcome of one patch. On failure Document is nil and Err
// carries the classified error; Message is always safe to show the user.
type Result struct {
	Success  bool
	Message  string
	Document *brd.Document
	Number   int
	Title    string
	Err      error
}

// Applier rewrites a single section through the generation client and
// verifies the model touched the section it was asked to.
type Applier struct {
	gen       generation.Client
	maxTokens int
	logger    logrus.FieldLogger
}

type Option func(*Applier)

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Applier) { a.logger = l }
}

func WithMaxTokens(n int) Option {
	return func(a *Applier) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

func NewApplier(gen generation.Client, opts ...Option) *Applier {
	a := &Applier{
		gen:       gen,
		maxTokens: DefaultMaxTokens,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply updates the section at index per instruction. doc is never modified;
// a successful Result carries an updated copy.
func (a *Applier) Apply(ctx context.Context, doc *brd.Document, index int, instruction string) Result {
	if doc == nil || index < 0 || index >= len(doc.Sections) {
		return failure(brderr.New(brderr.SectionNotFound, "Section index %d is out of range", index))
	}
	if a.gen == nil {
		return failure(brderr.New(brderr.GenerationFailed, "No generation client configured"))
	}

	target := doc.Sections[index]
	number := resolver.NumberForIndex(doc, index)
	title := brd.CleanTitle(target.Title)
	log := a.logger.WithFields(logrus.Fields{"section": number, "index": index, "title": title})

	prompt := buildPrompt(number, target, instruction)
	log.WithField("replacement", isReplacementContent(instruction)).Debug("invoking generation for section update")

	out, err := a.gen.Invoke(ctx, prompt, a.maxTokens)
	if err != nil {
		if brderr.KindOf(err) == "" {
			err = brderr.Wrap(brderr.GenerationFailed, err, "Generation failed")
		}
		log.WithError(err).Warn("section update generation failed")
		return failure(err)
	}

	updated, stage, err := reconstruct.ParseSection(out)
	if err != nil {
		log.WithError(err).Warn("could not parse updated section")
		return failure(err)
	}
	log = log.WithField("stage", stage)

	if err := verifyTitle(doc, number, title, updated.Title); err != nil {
		log.WithField("returned", updated.Title).Warn("updated section title does not match target")
		return failure(err)
	}

	next := doc.Clone()
	updated.Title = title
	next.Sections[index] = updated
	if next.HasTitleSection() != doc.HasTitleSection() {
		// Dropping the numeral from the first title would change numbering.
		next.Sections[index].Title = target.Title
	}
	next.Normalize()
	if err := brd.Validate(next); err != nil {
		log.WithError(err).Warn("updated document failed validation")
		return failure(brderr.Wrap(brderr.MalformedGenerationJSON, err, "Updated section does not match the document schema"))
	}

	log.Info("section updated")
	return Result{
		Success:  true,
		Message:  tracker.Confirmation(number, title),
		Document: next,
		Number:   number,
		Title:    title,
	}
}

// verifyTitle accepts the returned title when it equals or contains the
// expected one (or the reverse), ignoring case and numeral prefixes.
func verifyTitle(doc *brd.Document, number int, expected, returned string) error {
	want := strings.ToLower(brd.CleanTitle(expected))
	got := strings.ToLower(brd.CleanTitle(returned))
	if got == "" || got == want || strings.Contains(got, want) || strings.Contains(want, got) {
		return nil
	}

	for i, sec := range doc.ContentSections() {
		if strings.ToLower(brd.CleanTitle(sec.Title)) == got {
			return brderr.New(brderr.TitleMismatchAfterUpdate,
				"Error: AI updated section #%d ('%s') instead of section #%d ('%s'). Please try again with explicit section number.",
				i+1, brd.CleanTitle(returned), number, expected)
		}
	}
	return brderr.New(brderr.TitleMismatchAfterUpdate,
		"Error: AI returned a section titled '%s' while updating section #%d ('%s'). The update was not applied.",
		brd.CleanTitle(returned), number, expected)
}

func failure(err error) Result {
	msg := brderr.Message(err)
	if !strings.HasPrefix(msg, "Error:") {
		msg = fmt.Sprintf("Error updating section: %s", msg)
	}
	return Result{Message: msg, Err: err}
}
