package engine

import (
	"context"
	"fmt"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
	"brdchat/internal/resolver"
	"brdchat/internal/storage"
	"brdchat/internal/tracker"

	"github.com/sirupsen/logrus"
)

// ListSections numbers the content sections the same way the resolver does.
func (e *Engine) ListSections(doc *brd.Document) string {
	sections := doc.ContentSections()
	if len(sections) == 0 {
		return "This BRD has no sections yet."
	}
	var sb strings.Builder
	sb.WriteString("**BRD Sections:**\n\n")
	for i, s := range sections {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, brd.CleanTitle(s.Title))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (e *Engine) ShowSection(doc *brd.Document, ref resolver.Reference) (string, error) {
	text, _, err := e.showSection(doc, ref)
	return text, err
}

func (e *Engine) showSection(doc *brd.Document, ref resolver.Reference) (string, int, error) {
	idx, err := resolver.Resolve(doc, ref)
	if err != nil {
		return "", 0, err
	}
	n := resolver.NumberForIndex(doc, idx)
	return strings.TrimRight(brd.RenderSection(n, doc.Sections[idx]), "\n"), n, nil
}

// ApplyPatch resolves ref and patches that section. It returns the reply text
// and the updated document, which is nil when nothing changed.
func (e *Engine) ApplyPatch(ctx context.Context, doc *brd.Document, ref resolver.Reference, instruction string) (string, *brd.Document) {
	idx, err := resolver.Resolve(doc, ref)
	if err != nil {
		return brderr.Message(err), nil
	}
	res := e.applier.Apply(ctx, doc, idx, instruction)
	if !res.Success {
		return res.Message, nil
	}
	return res.Message, res.Document
}

// Reconstruct rebuilds a structured document from raw text.
func (e *Engine) Reconstruct(ctx context.Context, raw string) (*brd.Document, error) {
	doc, _, err := e.rebuilder.Reconstruct(ctx, raw)
	return doc, err
}

// DeriveContext replays the log into the session state for message.
func (e *Engine) DeriveContext(message string, events []storage.Event, doc *brd.Document) tracker.Snapshot {
	return tracker.Derive(message, events, doc)
}

// LoadDocument returns the structured document, rebuilding it from the stored
// text when the structure is missing. A rebuilt document is saved back so the
// next load is direct.
func (e *Engine) LoadDocument(ctx context.Context, id string) (*brd.Document, error) {
	doc, err := e.docs.Load(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !brderr.Is(err, brderr.DocumentStructureMissing) {
		return nil, err
	}
	log := e.logger.WithField("doc_id", id)
	log.WithError(err).Info("structure missing, reconstructing from text")

	text, textErr := e.docs.LoadText(ctx, id)
	if textErr != nil {
		return nil, brderr.Wrap(brderr.DocumentStructureMissing, textErr,
			"BRD %s has no structure and no text. Please regenerate the document", id)
	}

	doc, method, err := e.rebuilder.Reconstruct(ctx, text)
	if err != nil {
		return nil, brderr.Wrap(brderr.DocumentStructureMissing, err,
			"BRD %s could not be reconstructed. Please regenerate the document", id)
	}
	if err := e.docs.Save(ctx, id, doc); err != nil {
		log.WithError(err).Warn("failed to save reconstructed structure")
	}
	log.WithFields(logrus.Fields{"method": method, "sections": len(doc.Sections)}).Info("document reconstructed")
	return doc, nil
}
