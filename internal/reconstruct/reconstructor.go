package reconstruct

import (
	"context"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
	"brdchat/internal/generation"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxTokens   = 8192
	DefaultInputBudget = 6000
)

// Method names how a document was rebuilt.
type Method string

const (
	MethodGeneration Method = "generation"
	MethodHeuristic  Method = "heuristic"
)

// Reconstructor rebuilds a structured Document from stored plain text. It
// asks the model first and falls back to the line-based parser.
type Reconstructor struct {
	gen         generation.Client
	maxTokens   int
	inputBudget int
	logger      logrus.FieldLogger
}

type Option func(*Reconstructor)

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reconstructor) { r.logger = l }
}

func WithMaxTokens(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithInputBudget caps how many tokens of document text go into the prompt.
func WithInputBudget(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.inputBudget = n
		}
	}
}

// New returns a Reconstructor. gen may be nil, in which case only the
// heuristic parser runs.
func New(gen generation.Client, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		gen:         gen,
		maxTokens:   DefaultMaxTokens,
		inputBudget: DefaultInputBudget,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconstruct returns the rebuilt document and the method that produced it.
func (r *Reconstructor) Reconstruct(ctx context.Context, raw string) (*brd.Document, Method, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", brderr.New(brderr.ReconstructionError, "Document text is empty")
	}

	var genErr error
	if r.gen != nil {
		doc, err := r.FromGeneration(ctx, raw)
		if err == nil {
			return doc, MethodGeneration, nil
		}
		genErr = err
		r.logger.WithError(err).Warn("model reconstruction failed, using heuristic parser")
	}

	doc, err := FromText(raw)
	if err != nil {
		if genErr != nil {
			return nil, "", brderr.Wrap(brderr.ReconstructionError, genErr,
				"Could not reconstruct document: %s", brderr.Message(err))
		}
		return nil, "", err
	}
	if err := brd.Validate(doc); err != nil {
		return nil, "", brderr.Wrap(brderr.ReconstructionError, err, "Reconstructed document is invalid")
	}
	r.logger.WithField("sections", len(doc.Sections)).Info("document reconstructed from text")
	return doc, MethodHeuristic, nil
}

// FromGeneration converts raw text through the model and repairs the JSON it
// returns.
func (r *Reconstructor) FromGeneration(ctx context.Context, raw string) (*brd.Document, error) {
	if r.gen == nil {
		return nil, brderr.New(brderr.GenerationFailed, "No generation client configured")
	}
	text := generation.TruncateTokens(raw, r.inputBudget)
	if len(text) < len(raw) {
		r.logger.WithFields(logrus.Fields{"chars": len(raw), "kept": len(text)}).Debug("document text truncated for reconstruction")
	}

	out, err := r.gen.Invoke(ctx, buildStructurePrompt(text), r.maxTokens)
	if err != nil {
		return nil, err
	}
	doc, stage, err := ParseDocument(out)
	if err != nil {
		return nil, err
	}
	if len(doc.Sections) == 0 {
		return nil, brderr.New(brderr.ReconstructionError, "Generated document has no sections")
	}
	if err := brd.Validate(doc); err != nil {
		return nil, brderr.Wrap(brderr.ReconstructionError, err, "Generated document is invalid")
	}
	r.logger.WithFields(logrus.Fields{"stage": stage, "sections": len(doc.Sections)}).Info("document reconstructed by model")
	return doc, nil
}
