// Package engine ties the chat flow together: it loads the document, replays
// the session log, parses the message and dispatches to listing, display,
// questions or section patches.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
	"brdchat/internal/command"
	"brdchat/internal/generation"
	"brdchat/internal/patch"
	"brdchat/internal/reconstruct"
	"brdchat/internal/resolver"
	"brdchat/internal/storage"
	"brdchat/internal/tracker"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 20
	DefaultMaxTokens    = 4096
)

var envelope = regexp.MustCompile(`\[BRD_ID:\s*[^\]]+\]\s*`)

type Engine struct {
	docs storage.DocumentRepository
	log  storage.ConversationLog
	gen  generation.Client

	parser    *command.Parser
	applier   *patch.Applier
	rebuilder *reconstruct.Reconstructor

	historyLimit     int
	maxTokens        int
	rebuildMaxTokens int
	inputBudget      int
	logger           logrus.FieldLogger
}

type Option func(*Engine)

// WithGeneration sets the model client used for patches, reconstruction and
// free-form questions. Without one, edits fail and reconstruction is
// heuristic only.
func WithGeneration(gen generation.Client) Option {
	return func(e *Engine) { e.gen = gen }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithReconstructBudget caps the document text tokens sent for reconstruction.
func WithReconstructBudget(n int) Option {
	return func(e *Engine) { e.inputBudget = n }
}

// WithReconstructMaxTokens caps the output of a reconstruction call.
func WithReconstructMaxTokens(n int) Option {
	return func(e *Engine) { e.rebuildMaxTokens = n }
}

func WithParser(p *command.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

func New(docs storage.DocumentRepository, log storage.ConversationLog, opts ...Option) *Engine {
	ctx := context.TODO()
	assert.Assert(ctx, docs != nil, "document repository should not be nil")
	assert.Assert(ctx, log != nil, "conversation log should not be nil")

	e := &Engine{
		docs:         docs,
		log:          log,
		historyLimit: DefaultHistoryLimit,
		maxTokens:    DefaultMaxTokens,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = command.NewDefaultParser()
	}
	e.applier = patch.NewApplier(e.gen, patch.WithLogger(e.logger), patch.WithMaxTokens(e.maxTokens))
	e.rebuilder = reconstruct.New(e.gen, reconstruct.WithLogger(e.logger), reconstruct.WithInputBudget(e.inputBudget), reconstruct.WithMaxTokens(e.rebuildMaxTokens))
	return e
}

type Request struct {
	DocumentID string
	SessionID  string
	Message    string
	// Command is an optional terse form ("list", "show N", "update N: ...")
	// that takes precedence over parsing Message.
	Command string
}

type Reply struct {
	Text    string
	Intent  command.Intent
	Updated bool
	// Section is the user-visible number the reply is about, 0 if none.
	Section int
}

// HandleMessage runs one chat turn. Failures the user can act on come back
// as reply text; the error is reserved for the log and store.
func (e *Engine) HandleMessage(ctx context.Context, req Request) (Reply, error) {
	msg := strings.TrimSpace(envelope.ReplaceAllString(req.Message, ""))
	log := e.logger.WithFields(logrus.Fields{"doc_id": req.DocumentID, "session_id": req.SessionID})

	history, err := e.log.List(ctx, req.SessionID, e.historyLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read session history: %w", err)
	}
	if _, err := e.log.Append(ctx, req.SessionID, storage.RoleUser, msg); err != nil {
		return Reply{}, fmt.Errorf("failed to record user message: %w", err)
	}

	reply := e.respond(ctx, req, msg, history, log)
	log.WithFields(logrus.Fields{"intent": reply.Intent, "section": reply.Section, "updated": reply.Updated}).Info("message handled")

	if _, err := e.log.Append(ctx, req.SessionID, storage.RoleAssistant, reply.Text); err != nil {
		return reply, fmt.Errorf("failed to record assistant reply: %w", err)
	}
	return reply, nil
}

func (e *Engine) respond(ctx context.Context, req Request, msg string, history []storage.Event, log logrus.FieldLogger) Reply {
	doc, err := e.LoadDocument(ctx, req.DocumentID)
	if err != nil {
		log.WithError(err).Warn("document unavailable")
		return Reply{Text: missingDocumentMessage}
	}

	snap := e.DeriveContext(msg, history, doc)

	parsed, ok := command.ParseExplicit(req.Command)
	if !ok {
		parsed, err = e.parser.Parse(snap.Request)
		if err != nil {
			return e.unparsed(ctx, msg, err, snap, history, doc)
		}
	}
	log.WithFields(logrus.Fields{"intent": parsed.Intent, "rule": parsed.Rule}).Debug("command parsed")

	switch parsed.Intent {
	case command.IntentGreeting:
		return Reply{Text: helpMessage(resolver.SectionCount(doc)), Intent: parsed.Intent}
	case command.IntentList:
		return Reply{Text: e.ListSections(doc), Intent: parsed.Intent}
	case command.IntentShow:
		return e.show(doc, parsed.Reference, parsed.Intent)
	case command.IntentShowUpdated:
		if snap.Updated == nil {
			return Reply{Text: noUpdatedSectionMessage, Intent: parsed.Intent}
		}
		return e.show(doc, focusReference(doc, *snap.Updated), parsed.Intent)
	case command.IntentQuery:
		if parsed.AboutUpdates {
			return Reply{Text: updatesMessage(snap), Intent: parsed.Intent}
		}
		return Reply{Text: e.answer(ctx, msg, snap, history, doc), Intent: parsed.Intent}
	case command.IntentEdit:
		return e.edit(ctx, req.DocumentID, doc, snap, parsed, log)
	default:
		return Reply{Text: shortHelpMessage}
	}
}

// unparsed handles a message no rule accepted.
func (e *Engine) unparsed(ctx context.Context, msg string, err error, snap tracker.Snapshot, history []storage.Event, doc *brd.Document) Reply {
	switch {
	case len([]rune(msg)) < shortMessageLen:
		return Reply{Text: shortHelpMessage}
	case command.LooksLikeEdit(snap.Request):
		return Reply{Text: brderr.Message(err), Intent: command.IntentEdit}
	default:
		return Reply{Text: e.answer(ctx, msg, snap, history, doc), Intent: command.IntentQuery}
	}
}

func (e *Engine) show(doc *brd.Document, ref resolver.Reference, intent command.Intent) Reply {
	text, n, err := e.showSection(doc, ref)
	if err != nil {
		return Reply{Text: brderr.Message(err), Intent: intent}
	}
	return Reply{Text: text, Intent: intent, Section: n}
}

func (e *Engine) edit(ctx context.Context, docID string, doc *brd.Document, snap tracker.Snapshot, parsed command.Parsed, log logrus.FieldLogger) Reply {
	ref := parsed.Reference
	if ref.Kind == resolver.Contextual {
		if snap.Shown == nil {
			return Reply{Text: noShownSectionMessage, Intent: parsed.Intent}
		}
		ref = focusReference(doc, *snap.Shown)
		log.WithFields(logrus.Fields{"source": snap.ShownSource, "section": ref.Number}).Debug("resolved contextual reference")
	}

	text, updated := e.ApplyPatch(ctx, doc, ref, parsed.Instruction)
	reply := Reply{Text: text, Intent: parsed.Intent}
	if updated == nil {
		return reply
	}

	f, _ := tracker.ParseConfirmation(text)
	if err := e.docs.Save(ctx, docID, updated); err != nil {
		log.WithError(err).Error("failed to save updated document")
		reply.Text = saveFailedMessage(err)
		return reply
	}
	reply.Updated = true
	reply.Section = f.Number
	return reply
}

// focusReference turns a tracked section into a number reference. The
// tracked number stands when that section still carries the tracked title.
// Otherwise numbers have drifted (the title pseudo-section was added or
// removed), so the section with exactly that title is used, and fuzzy title
// matching only when no title is equal.
func focusReference(doc *brd.Document, f tracker.Focus) resolver.Reference {
	want := strings.TrimSpace(brd.CleanTitle(f.Title))
	if want == "" {
		return resolver.Number(f.Number)
	}
	if idx, err := resolver.IndexForNumber(doc, f.Number); err == nil && sameTitle(doc.Sections[idx].Title, want) {
		return resolver.Number(f.Number)
	}
	for i, s := range doc.ContentSections() {
		if sameTitle(s.Title, want) {
			return resolver.Number(i + 1)
		}
	}
	if n, err := resolver.FindNumber(doc, want); err == nil {
		return resolver.Number(n)
	}
	return resolver.Number(f.Number)
}

func sameTitle(stored, want string) bool {
	return strings.EqualFold(strings.TrimSpace(brd.CleanTitle(stored)), want)
}

func (e *Engine) answer(ctx context.Context, msg string, snap tracker.Snapshot, history []storage.Event, doc *brd.Document) string {
	if e.gen == nil {
		return vagueQuestionMessage(msg)
	}
	prompt := buildQuestionPrompt(msg, resolver.SectionCount(doc), snap, history)
	out, err := e.gen.Invoke(ctx, prompt, e.maxTokens)
	if err != nil {
		e.logger.WithError(err).Warn("general question generation failed")
		return vagueQuestionMessage(msg)
	}
	return out
}

// CreateSession starts a conversation about docID and records the welcome
// message as its first event.
func (e *Engine) CreateSession(ctx context.Context, docID string) (string, string, error) {
	sessionID := uuid.NewString()
	welcome := welcomeMessage(docID)
	if _, err := e.log.Append(ctx, sessionID, storage.RoleSystem, welcome); err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}
	e.logger.WithFields(logrus.Fields{"doc_id": docID, "session_id": sessionID}).Info("session created")
	return sessionID, welcome, nil
}

// History returns up to limit of the session's most recent events.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]storage.Event, error) {
	return e.log.List(ctx, sessionID, limit)
}
