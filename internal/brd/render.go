package brd

import (
	"fmt"
	"strings"
)

const DocumentHeader = "Business Requirements Document (BRD)"

// RenderText produces the plain-text rendering stored next to the structure.
// The title pseudo-section is written unnumbered, followed by any content it
// carries; content sections are numbered from 1 the same way the resolver
// numbers them.
func RenderText(d *Document) string {
	lines := []string{DocumentHeader, ""}

	sections := d.Sections
	if d.HasTitleSection() {
		lines = append(lines, strings.TrimSpace(sections[0].Title), "")
		lines = appendBlocks(lines, sections[0].Content)
		sections = sections[1:]
	}

	for i, s := range sections {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, CleanTitle(s.Title)), "")
		lines = appendBlocks(lines, s.Content)
	}

	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

func appendBlocks(lines []string, blocks []Block) []string {
	for _, b := range blocks {
		switch b.Type {
		case BlockParagraph:
			lines = append(lines, strings.TrimSpace(b.Text), "")
		case BlockBullet:
			for _, it := range b.Items {
				lines = append(lines, "- "+it)
			}
			lines = append(lines, "")
		case BlockTable:
			if len(b.Rows) == 0 {
				continue
			}
			lines = append(lines, tableRow(b.Rows[0]), tableRule(len(b.Rows[0])))
			for _, r := range b.Rows[1:] {
				lines = append(lines, tableRow(r))
			}
			lines = append(lines, "")
		}
	}
	return lines
}

// RenderSection formats one section for chat display. The "## N. Title" header
// is what the context tracker later recognizes as a section display.
func RenderSection(number int, s Section) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %d. %s\n\n", number, CleanTitle(s.Title)))
	for _, b := range s.Content {
		switch b.Type {
		case BlockParagraph:
			sb.WriteString(b.Text + "\n\n")
		case BlockBullet:
			for _, it := range b.Items {
				sb.WriteString("- " + it + "\n")
			}
			sb.WriteString("\n")
		case BlockTable:
			for _, r := range b.Rows {
				sb.WriteString(tableRow(r) + "\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func tableRule(cols int) string {
	if cols < 1 {
		cols = 1
	}
	return "|" + strings.Repeat("---|", cols)
}
