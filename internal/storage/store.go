package storage

import (
	"context"
	"time"

	"brdchat/internal/brd"
)

// MaxPageSize caps how many events one List call returns.
const MaxPageSize = 100

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Event is one immutable chat turn.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store combines document and conversation persistence.
type Store interface {
	DocumentRepository
	ConversationLog
	Close() error
}

// DocumentRepository persists whole documents by id.
type DocumentRepository interface {
	// Load returns the structured document. A missing or unreadable structure
	// is reported as brderr.DocumentStructureMissing.
	Load(ctx context.Context, id string) (*brd.Document, error)

	// Save overwrites the structure and its plain-text rendering together.
	Save(ctx context.Context, id string, doc *brd.Document) error

	// LoadText returns the stored plain-text rendering or imported raw text.
	LoadText(ctx context.Context, id string) (string, error)

	// SaveText stores raw text and drops any structure, which no longer matches it.
	SaveText(ctx context.Context, id string, text string) error
}

// ConversationLog is an append-only list of events per session.
type ConversationLog interface {
	Append(ctx context.Context, sessionID string, role Role, text string) (Event, error)

	// List returns up to maxResults of the most recent events in chronological
	// order. maxResults <= 0 or above MaxPageSize means MaxPageSize.
	List(ctx context.Context, sessionID string, maxResults int) ([]Event, error)
}

func pageSize(maxResults int) int {
	if maxResults <= 0 || maxResults > MaxPageSize {
		return MaxPageSize
	}
	return maxResults
}

// prepareDocument normalizes and validates doc and returns its stored forms.
func prepareDocument(doc *brd.Document) ([]byte, string, error) {
	if err := brd.Validate(doc); err != nil {
		return nil, "", err
	}
	structure, err := brd.Encode(doc)
	if err != nil {
		return nil, "", err
	}
	return structure, brd.RenderText(doc), nil
}
