// Package tracker recovers session state by replaying the conversation log.
// There is no stored "current section": every request re-derives it from the
// current message and the events that came before it.
package tracker

import (
	"regexp"
	"strconv"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/resolver"
	"brdchat/internal/storage"
)

// Source records which precedence step produced Snapshot.Shown.
type Source int

const (
	SourceNone Source = iota
	SourceMessage
	SourceShowCommand
	SourceDisplay
	SourceMention
)

func (s Source) String() string {
	switch s {
	case SourceMessage:
		return "message"
	case SourceShowCommand:
		return "show-command"
	case SourceDisplay:
		return "display"
	case SourceMention:
		return "mention"
	default:
		return "none"
	}
}

// Focus is a user-visible section number with the title it was seen under.
type Focus struct {
	Number int
	Title  string
}

type Snapshot struct {
	// Shown is the section the user is currently looking at.
	Shown       *Focus
	ShownSource Source
	// Updated is the section most recently confirmed as updated.
	Updated *Focus
	// AllUpdated holds every confirmed update, oldest first, one entry per section.
	AllUpdated []Focus
	// Request is the part of the message to parse as a command. It differs
	// from the message when the message wraps pasted section content.
	Request string
}

func (s Snapshot) AllUpdatedNumbers() []int {
	out := make([]int, len(s.AllUpdated))
	for i, f := range s.AllUpdated {
		out[i] = f.Number
	}
	return out
}

var (
	requestMarker   = regexp.MustCompile(`(?i)USER REQUEST:\s*([^\r\n]+)`)
	lineSection     = regexp.MustCompile(`(?im)^\s*(?:SECTION\s+)?(\d+)[:.][ \t]*([^\r\n]*)`)
	markdownSection = regexp.MustCompile(`(?i)##\s*(?:Section\s+)?(\d+)`)
	leadingHashes   = regexp.MustCompile(`^#+\s*`)
	showNumber      = regexp.MustCompile(`show\s+(?:me\s+)?(?:section\s+)?(\d+)`)
	showTitle       = regexp.MustCompile(`show\s+(?:me\s+)?(?:section\s+)?([a-z\s]{3,})`)
	displayHeader   = regexp.MustCompile(`(?im)^(?:##\s*)?(\d+)\.\s+([a-z][^\n]*)`)
	inlineHeader    = regexp.MustCompile(`(?i)(\d+)\.\s+([a-z][a-z\s]+)`)
	anyMention      = regexp.MustCompile(`(\d+)\.\s+`)
)

var commandWords = []string{"change", "update", "modify", "edit", "replace", "show", "list"}

var requestSkipPrefixes = []string{"##", "**", "|", "-", "---", "SECTION", "IMPORTANT"}

// showStopWords are words that follow "show" without naming a section.
var showStopWords = map[string]bool{
	"updated": true, "what": true, "which": true, "where": true, "when": true,
	"why": true, "how": true, "all": true, "me": true, "the": true, "last": true,
}

// Derive replays events (oldest first) and the current message into a
// Snapshot. doc may be nil, in which case title lookups are skipped. Derive
// has no side effects: equal inputs give equal snapshots.
func Derive(message string, events []storage.Event, doc *brd.Document) Snapshot {
	snap := Snapshot{Request: message}
	if req := ExtractRequest(message); req != "" {
		snap.Request = req
	}

	if f, ok := fromMessage(message, doc); ok {
		snap.Shown, snap.ShownSource = &f, SourceMessage
	} else if f, ok := fromShowCommand(events, doc); ok {
		snap.Shown, snap.ShownSource = &f, SourceShowCommand
	} else if f, ok := fromDisplay(events, doc); ok {
		snap.Shown, snap.ShownSource = &f, SourceDisplay
	} else if f, ok := fromMention(events, doc); ok {
		snap.Shown, snap.ShownSource = &f, SourceMention
	}

	if f, ok := ParseConfirmation(message); ok {
		snap.Updated = &f
	} else {
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Role != storage.RoleAssistant {
				continue
			}
			if f, ok := ParseConfirmation(events[i].Text); ok {
				snap.Updated = &f
				break
			}
		}
	}

	seen := make(map[int]bool)
	for _, ev := range events {
		if ev.Role != storage.RoleAssistant {
			continue
		}
		if f, ok := ParseConfirmation(ev.Text); ok && !seen[f.Number] {
			seen[f.Number] = true
			snap.AllUpdated = append(snap.AllUpdated, f)
		}
	}
	return snap
}

// ExtractRequest finds the actual request inside a message that also carries
// pasted section content. It returns "" when the whole message is the request.
func ExtractRequest(message string) string {
	if m := requestMarker.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(message, "\n")
	if len(lines) < 2 {
		return ""
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || hasAnyPrefix(line, requestSkipPrefixes) {
			continue
		}
		if containsAny(strings.ToLower(line), commandWords) {
			return line
		}
	}
	return ""
}

func fromMessage(message string, doc *brd.Document) (Focus, bool) {
	if m := lineSection.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			title := strings.TrimSpace(m[2])
			if title == "" {
				title = titleFor(doc, n)
			}
			return Focus{Number: n, Title: brd.CleanTitle(title)}, true
		}
	}
	if m := markdownSection.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Focus{Number: n, Title: titleFor(doc, n)}, true
		}
	}
	return fingerprint(message, doc)
}

// fingerprint matches a message whose first line is a known section title and
// whose body looks like that section's content pasted back.
func fingerprint(message string, doc *brd.Document) (Focus, bool) {
	if doc == nil {
		return Focus{}, false
	}
	lines := strings.Split(strings.TrimSpace(message), "\n")
	first := strings.TrimSpace(lines[0])
	first = brd.CleanTitle(leadingHashes.ReplaceAllString(first, ""))
	if len(first) <= 2 || isCommandLine(first) {
		return Focus{}, false
	}
	if !hasSectionContent(message, lines) {
		return Focus{}, false
	}
	n, err := resolver.FindNumber(doc, first)
	if err != nil {
		return Focus{}, false
	}
	return Focus{Number: n, Title: titleFor(doc, n)}, true
}

func hasSectionContent(message string, lines []string) bool {
	if strings.Contains(message, "\t") || strings.Contains(message, "|") {
		return true
	}
	body := 0
	for _, l := range lines[1:] {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "- ") || strings.HasPrefix(l, "• ") || strings.HasPrefix(l, "* ") {
			return true
		}
		body++
	}
	return body >= 2
}

func isCommandLine(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		switch w {
		case "change", "update", "modify", "edit", "replace", "show", "list", "hi", "hello":
			return true
		}
	}
	return false
}

func fromShowCommand(events []storage.Event, doc *brd.Document) (Focus, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Role != storage.RoleUser {
			continue
		}
		text := strings.ToLower(events[i].Text)
		if m := showNumber.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return Focus{Number: n, Title: titleFor(doc, n)}, true
			}
		}
		if doc == nil {
			continue
		}
		m := showTitle.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		query := strings.TrimSpace(m[1])
		if fields := strings.Fields(query); len(fields) == 0 || showStopWords[fields[0]] {
			continue
		}
		if n, err := resolver.FindNumber(doc, query); err == nil {
			return Focus{Number: n, Title: titleFor(doc, n)}, true
		}
	}
	return Focus{}, false
}

func fromDisplay(events []storage.Event, doc *brd.Document) (Focus, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Role != storage.RoleAssistant || looksLikeConfirmation(ev.Text) {
			continue
		}
		if m := displayHeader.FindStringSubmatch(ev.Text); m != nil {
			title := strings.TrimSpace(m[2])
			if n, err := strconv.Atoi(m[1]); err == nil && len(ev.Text) > len(title)+20 {
				return Focus{Number: n, Title: title}, true
			}
		}
		head := strings.ToLower(ev.Text)
		if len(head) > 50 {
			head = head[:50]
		}
		if strings.Contains(head, "updated") {
			continue
		}
		if m := inlineHeader.FindStringSubmatch(ev.Text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return Focus{Number: n, Title: titleFor(doc, n)}, true
			}
		}
	}
	return Focus{}, false
}

func fromMention(events []storage.Event, doc *brd.Document) (Focus, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Role == storage.RoleSystem {
			continue
		}
		text := events[i].Text
		if isConfirmation(text) || strings.Contains(text, confirmMark) {
			continue
		}
		if m := anyMention.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return Focus{Number: n, Title: titleFor(doc, n)}, true
			}
		}
	}
	return Focus{}, false
}

func titleFor(doc *brd.Document, n int) string {
	if doc == nil {
		return ""
	}
	idx, err := resolver.IndexForNumber(doc, n)
	if err != nil {
		return ""
	}
	return brd.CleanTitle(doc.Sections[idx].Title)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
