package brd

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockBullet    BlockType = "bullet"
	BlockTable     BlockType = "table"
)

// Document is the structured BRD: an ordered list of sections. Index 0 may hold
// an unnumbered document title instead of content section 1.
type Document struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	Title   string  `json:"title"`
	Content []Block `json:"content"`
}

// Block is a tagged content unit. Type selects which of Text, Items or Rows is meaningful.
type Block struct {
	Type  BlockType
	Text  string
	Items []string
	Rows  [][]string
}

var numberPrefix = regexp.MustCompile(`^\d+\.\s*`)

// CleanTitle strips a leading "N. " numeral prefix.
func CleanTitle(title string) string {
	return strings.TrimSpace(numberPrefix.ReplaceAllString(strings.TrimSpace(title), ""))
}

// IsNumberedTitle reports whether a title itself looks like a numbered section header.
func IsNumberedTitle(title string) bool {
	return numberPrefix.MatchString(strings.TrimSpace(title))
}

func Paragraph(text string) Block {
	return Block{Type: BlockParagraph, Text: text}
}

func Bullets(items ...string) Block {
	return Block{Type: BlockBullet, Items: items}
}

// Table builds a table block; the first row is the header.
func Table(rows ...[]string) Block {
	return Block{Type: BlockTable, Rows: rows}
}

// HasTitleSection reports whether section 0 is a document title rather than
// content. The title counts as a pseudo-section when it names the product
// ("ai-powered", "brd") or is short, and is not itself numbered. This is a
// heuristic: an unusually short first content section is misread as a title.
func (d *Document) HasTitleSection() bool {
	if d == nil || len(d.Sections) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(d.Sections[0].Title))
	if IsNumberedTitle(first) {
		return false
	}
	return strings.Contains(first, "ai-powered") ||
		strings.Contains(first, "brd") ||
		len([]rune(first)) < 30
}

// ContentSections returns the sections a user can address by number.
func (d *Document) ContentSections() []Section {
	if d == nil {
		return nil
	}
	if d.HasTitleSection() {
		return d.Sections[1:]
	}
	return d.Sections
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Sections: make([]Section, len(d.Sections))}
	for i, s := range d.Sections {
		out.Sections[i] = s.Clone()
	}
	return out
}

func (s Section) Clone() Section {
	out := Section{Title: s.Title, Content: make([]Block, len(s.Content))}
	for i, b := range s.Content {
		out.Content[i] = b.Clone()
	}
	return out
}

func (b Block) Clone() Block {
	out := Block{Type: b.Type, Text: b.Text}
	if b.Items != nil {
		out.Items = append([]string(nil), b.Items...)
	}
	if b.Rows != nil {
		out.Rows = make([][]string, len(b.Rows))
		for i, r := range b.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

// Normalize replaces nil slices with empty ones so the serialized form always
// carries every required array.
func (d *Document) Normalize() {
	if d.Sections == nil {
		d.Sections = []Section{}
	}
	for i := range d.Sections {
		s := &d.Sections[i]
		if s.Content == nil {
			s.Content = []Block{}
		}
		for j := range s.Content {
			b := &s.Content[j]
			switch b.Type {
			case BlockBullet:
				if b.Items == nil {
					b.Items = []string{}
				}
			case BlockTable:
				if b.Rows == nil {
					b.Rows = [][]string{}
				}
			}
		}
	}
}

type paragraphJSON struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

type bulletJSON struct {
	Type  BlockType `json:"type"`
	Items []string  `json:"items"`
}

type tableJSON struct {
	Type BlockType  `json:"type"`
	Rows [][]string `json:"rows"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockParagraph:
		return json.Marshal(paragraphJSON{Type: b.Type, Text: b.Text})
	case BlockBullet:
		items := b.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(bulletJSON{Type: b.Type, Items: items})
	case BlockTable:
		rows := b.Rows
		if rows == nil {
			rows = [][]string{}
		}
		return json.Marshal(tableJSON{Type: b.Type, Rows: rows})
	default:
		return nil, fmt.Errorf("unknown block type %q", b.Type)
	}
}

// UnmarshalJSON accepts non-string scalars in items and cells, since model
// output sometimes carries bare numbers in tables.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  BlockType `json:"type"`
		Text  any       `json:"text"`
		Items []any     `json:"items"`
		Rows  [][]any   `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Block{Type: raw.Type}
	switch raw.Type {
	case BlockParagraph:
		out.Text = scalarString(raw.Text)
	case BlockBullet:
		out.Items = make([]string, 0, len(raw.Items))
		for _, it := range raw.Items {
			out.Items = append(out.Items, scalarString(it))
		}
	case BlockTable:
		out.Rows = make([][]string, 0, len(raw.Rows))
		for _, r := range raw.Rows {
			row := make([]string, 0, len(r))
			for _, c := range r {
				row = append(row, scalarString(c))
			}
			out.Rows = append(out.Rows, row)
		}
	default:
		return fmt.Errorf("unknown block type %q", raw.Type)
	}
	*b = out
	return nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Encode serializes a document in its stored form.
func Encode(d *Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("document is nil")
	}
	cp := d.Clone()
	cp.Normalize()
	return json.MarshalIndent(cp, "", "  ")
}

func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	d.Normalize()
	return &d, nil
}
