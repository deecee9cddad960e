package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"

	"github.com/google/uuid"
)

const (
	structureFile = "brd_structure.json"
	sessionsDir   = "sessions"
)

// FileStore keeps documents as <root>/<id>/brd_structure.json plus
// <root>/<id>/BRD_<id>.txt, and sessions as JSON lines under <root>/sessions.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("file store root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, sessionsDir), 0755); err != nil {
		return nil, err
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) docDir(id string) string {
	return filepath.Join(s.root, safeName(id))
}

func (s *FileStore) structurePath(id string) string {
	return filepath.Join(s.docDir(id), structureFile)
}

func (s *FileStore) textPath(id string) string {
	return filepath.Join(s.docDir(id), "BRD_"+safeName(id)+".txt")
}

func (s *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(s.root, sessionsDir, safeName(sessionID)+".jsonl")
}

// --- DocumentRepository Implementation ---

func (s *FileStore) Load(ctx context.Context, id string) (*brd.Document, error) {
	b, err := os.ReadFile(s.structurePath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, brderr.New(brderr.DocumentStructureMissing, "no structured document stored for %s", id)
	}
	if err != nil {
		return nil, err
	}
	doc, err := brd.Decode(b)
	if err != nil {
		return nil, brderr.Wrap(brderr.DocumentStructureMissing, err, "stored structure for %s is unreadable", id)
	}
	return doc, nil
}

// Save stages both files first and renames the structure last, so a failed
// save never leaves a new structure next to stale text.
func (s *FileStore) Save(ctx context.Context, id string, doc *brd.Document) error {
	structure, text, err := prepareDocument(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.docDir(id), 0755); err != nil {
		return err
	}

	textTmp, err := writeTemp(s.docDir(id), []byte(text))
	if err != nil {
		return err
	}
	structTmp, err := writeTemp(s.docDir(id), append(structure, '\n'))
	if err != nil {
		os.Remove(textTmp)
		return err
	}

	if err := os.Rename(textTmp, s.textPath(id)); err != nil {
		os.Remove(textTmp)
		os.Remove(structTmp)
		return err
	}
	if err := os.Rename(structTmp, s.structurePath(id)); err != nil {
		os.Remove(structTmp)
		return err
	}
	return nil
}

func (s *FileStore) LoadText(ctx context.Context, id string) (string, error) {
	b, err := os.ReadFile(s.textPath(id))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && strings.TrimSpace(string(b)) == "") {
		return "", brderr.New(brderr.DocumentStructureMissing, "no text stored for %s", id)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *FileStore) SaveText(ctx context.Context, id string, text string) error {
	if err := os.MkdirAll(s.docDir(id), 0755); err != nil {
		return err
	}
	tmp, err := writeTemp(s.docDir(id), []byte(text))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.textPath(id)); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Remove(s.structurePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// --- ConversationLog Implementation ---

func (s *FileStore) Append(ctx context.Context, sessionID string, role Role, text string) (Event, error) {
	ev := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.sessionPath(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return Event{}, err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *FileStore) List(ctx context.Context, sessionID string, maxResults int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.sessionPath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("corrupt event in session %s: %w", sessionID, err)
		}
		all = append(all, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n := pageSize(maxResults); len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func safeName(id string) string {
	id = strings.TrimSpace(id)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return replacer.Replace(id)
}
