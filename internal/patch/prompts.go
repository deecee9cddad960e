package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	"brdchat/internal/brd"
)

const sectionShape = `{
    "title": "%s",
    "content": [
        { "type": "paragraph", "text": "..." },
        { "type": "bullet", "items": ["item1","item2"] },
        { "type": "table", "rows": [["col1","col2"],["v1","v2"]] }
    ]
}`

// isReplacementContent reports whether the instruction carries a full
// section body rather than an edit to apply.
func isReplacementContent(instruction string) bool {
	if strings.Contains(instruction, "##") || strings.Contains(instruction, "**") {
		return true
	}
	structured := strings.Contains(instruction, "\n\n") ||
		strings.Contains(instruction, "- ") ||
		strings.Contains(instruction, "|")
	return structured && len(instruction) > 200
}

func buildPrompt(number int, sec brd.Section, instruction string) string {
	if isReplacementContent(instruction) {
		return buildReplacementPrompt(sec, instruction)
	}
	return buildEditPrompt(number, sec, instruction)
}

func buildReplacementPrompt(sec brd.Section, instruction string) string {
	var sb strings.Builder
	sb.WriteString("You are a documentation assistant. The user wants to update a BRD section. They have provided new content below.\n\n")
	sb.WriteString("CURRENT SECTION:\n")
	sb.WriteString(sectionJSON(sec))
	sb.WriteString("\n\nUSER'S NEW CONTENT:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nYour task:\n")
	sb.WriteString("1. Parse the user's content and understand what they want\n")
	sb.WriteString("2. If they provided a full section with headers (like \"## 5. Scope\"), extract just the content parts\n")
	sb.WriteString("3. If they gave specific instructions, follow those instructions\n")
	sb.WriteString("4. Convert the content into the JSON structure below\n")
	sb.WriteString("5. Keep the section title the same\n\n")
	sb.WriteString("Respond ONLY with JSON in this exact structure:\n")
	fmt.Fprintf(&sb, sectionShape, brd.CleanTitle(sec.Title))
	return sb.String()
}

func buildEditPrompt(number int, sec brd.Section, instruction string) string {
	title := brd.CleanTitle(sec.Title)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a documentation assistant. You MUST update BRD section #%d based on the user's instruction.\n\n", number)
	sb.WriteString("CRITICAL INFORMATION:\n")
	fmt.Fprintf(&sb, "- Section Number: %d\n", number)
	fmt.Fprintf(&sb, "- Section Title: %q\n", title)
	fmt.Fprintf(&sb, "- Section Content Preview: %s\n\n", contentPreview(sec, 300))
	fmt.Fprintf(&sb, "YOU ARE UPDATING SECTION #%d TITLED %q.\n", number, title)
	sb.WriteString("DO NOT update any other section.\n\n")
	fmt.Fprintf(&sb, "FULL SECTION #%d DATA:\n", number)
	sb.WriteString(sectionJSON(sec))
	sb.WriteString("\n\nUSER INSTRUCTION:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nYour task:\n")
	fmt.Fprintf(&sb, "1. Find the content in section #%d (titled %q)\n", number, title)
	fmt.Fprintf(&sb, "2. Apply the user's instruction: %q\n", instruction)
	fmt.Fprintf(&sb, "3. Return ONLY the updated section #%d\n\n", number)
	sb.WriteString("Respond ONLY with JSON in this exact structure:\n")
	fmt.Fprintf(&sb, sectionShape, title)
	sb.WriteString("\n\nCRITICAL REQUIREMENTS:\n")
	fmt.Fprintf(&sb, "1. The \"title\" field MUST be exactly %q (no number prefix, no variations)\n", title)
	sb.WriteString("2. Only modify the content array\n")
	sb.WriteString("3. If the user says \"change X to Y\", replace ALL occurrences of X with Y in this section\n")
	sb.WriteString("4. Do NOT change the section title\n")
	sb.WriteString("5. Return the complete section with all content blocks, not just the changed parts\n")
	return sb.String()
}

// contentPreview summarizes the first three blocks of a section.
func contentPreview(sec brd.Section, limit int) string {
	var lines []string
	for i, b := range sec.Content {
		if i == 3 {
			break
		}
		switch b.Type {
		case brd.BlockParagraph:
			lines = append(lines, b.Text)
		case brd.BlockTable:
			if len(b.Rows) > 0 {
				lines = append(lines, "Table: "+strings.Join(b.Rows[0], " | "))
			}
		case brd.BlockBullet:
			items := b.Items
			if len(items) > 3 {
				items = items[:3]
			}
			if len(items) > 0 {
				lines = append(lines, "Bullets: "+strings.Join(items, ", "))
			}
		}
	}
	preview := []rune(strings.Join(lines, "\n"))
	if len(preview) > limit {
		preview = preview[:limit]
	}
	return string(preview)
}

func sectionJSON(sec brd.Section) string {
	data, err := json.MarshalIndent(sec, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
