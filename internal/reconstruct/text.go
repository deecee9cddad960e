package reconstruct

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"
)

// MaxSectionNumber is the highest number that can start a top-level section.
// Larger numbers are list steps inside a section ("17. Step 1").
const MaxSectionNumber = 16

var (
	numberedHeader = regexp.MustCompile(`(?i)^(?:SECTION\s+)?(\d+)\.?\s*(.+)$`)
	markdownHeader = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	bulletLine     = regexp.MustCompile(`^[-•*]\s+(.*)$`)
	ruleLine       = regexp.MustCompile(`^[\s|:\-=+]+$`)
	hasLetter      = regexp.MustCompile(`\pL`)
)

type textParser struct {
	doc   brd.Document
	cur   *brd.Section
	title *brd.Section
	kind  brd.BlockType
	para  []string
	items []string
	rows  [][]string

	// number of the first section header, 1 for markdown headers
	firstNumber int
}

// FromText rebuilds a Document from its plain-text rendering without any
// model call. A title line before the first section becomes the unnumbered
// title pseudo-section, with the lines under it as its content, so numbering
// survives the round trip.
func FromText(raw string) (*brd.Document, error) {
	p := &textParser{}
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		p.line(strings.TrimSpace(line))
	}
	p.closeSection()

	if len(p.doc.Sections) == 0 {
		return nil, brderr.New(brderr.ReconstructionError, "No numbered sections found in document text")
	}
	titled := false
	if p.title != nil {
		withTitle := brd.Document{Sections: append([]brd.Section{*p.title}, p.doc.Sections...)}
		if titled = withTitle.HasTitleSection(); titled {
			p.doc = withTitle
		}
	}
	if !titled && p.doc.HasTitleSection() {
		// Keep the first header numbered so it is not mistaken for a title,
		// which would shift every section number.
		first := &p.doc.Sections[0]
		first.Title = fmt.Sprintf("%d. %s", p.firstNumber, first.Title)
	}
	p.doc.Normalize()
	return &p.doc, nil
}

func (p *textParser) line(line string) {
	if line == "" {
		p.flush()
		return
	}
	if ruleLine.MatchString(line) {
		return
	}
	if title, n, ok := sectionHeader(line); ok {
		p.closeSection()
		if p.firstNumber == 0 {
			p.firstNumber = n
		}
		p.cur = &brd.Section{Title: title}
		return
	}
	if p.cur == nil {
		if p.title == nil && !strings.EqualFold(line, brd.DocumentHeader) && !isTableLine(line) {
			p.title = &brd.Section{Title: line, Content: []brd.Block{}}
			p.cur = p.title
		}
		return
	}
	switch {
	case isTableLine(line):
		p.switchKind(brd.BlockTable)
		if cells := splitCells(line); len(cells) > 0 {
			p.rows = append(p.rows, cells)
		}
	case bulletLine.MatchString(line):
		p.switchKind(brd.BlockBullet)
		p.items = append(p.items, strings.TrimSpace(bulletLine.FindStringSubmatch(line)[1]))
	default:
		p.switchKind(brd.BlockParagraph)
		p.para = append(p.para, line)
	}
}

// sectionHeader reports the title and number of a section header line.
func sectionHeader(line string) (string, int, bool) {
	if isTableLine(line) {
		return "", 0, false
	}
	if m := markdownHeader.FindStringSubmatch(line); m != nil {
		inner := strings.TrimSpace(m[1])
		if title, n, ok := sectionHeader(inner); ok {
			return title, n, true
		}
		title := brd.CleanTitle(inner)
		return title, 1, title != ""
	}
	m := numberedHeader.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > MaxSectionNumber {
		return "", 0, false
	}
	title := strings.TrimSpace(strings.TrimLeft(m[2], ":.-) \t"))
	if !hasLetter.MatchString(title) {
		return "", 0, false
	}
	return title, n, true
}

func isTableLine(line string) bool {
	return strings.Count(line, "|") >= 2 || strings.Contains(line, "\t")
}

func splitCells(line string) []string {
	sep := "|"
	if strings.Count(line, "|") < 2 {
		sep = "\t"
	}
	var cells []string
	for _, c := range strings.Split(line, sep) {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func (p *textParser) switchKind(kind brd.BlockType) {
	if p.kind != kind {
		p.flush()
	}
	p.kind = kind
}

func (p *textParser) flush() {
	if p.cur != nil {
		switch p.kind {
		case brd.BlockParagraph:
			if len(p.para) > 0 {
				p.cur.Content = append(p.cur.Content, brd.Paragraph(strings.Join(p.para, "\n")))
			}
		case brd.BlockBullet:
			if len(p.items) > 0 {
				p.cur.Content = append(p.cur.Content, brd.Bullets(p.items...))
			}
		case brd.BlockTable:
			if len(p.rows) > 0 {
				p.cur.Content = append(p.cur.Content, brd.Table(p.rows...))
			}
		}
	}
	p.kind, p.para, p.items, p.rows = "", nil, nil, nil
}

// closeSection ends the current section. The title section is kept aside
// until FromText decides whether it qualifies.
func (p *textParser) closeSection() {
	p.flush()
	if p.cur != nil && p.cur != p.title {
		p.doc.Sections = append(p.doc.Sections, *p.cur)
	}
	p.cur = nil
}
