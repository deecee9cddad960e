package reconstruct

import (
	"strings"
)

const structureSchema = `{
  "sections": [
    {
      "title": "Section Title",
      "content": [
        { "type": "paragraph", "text": "text content" },
        { "type": "bullet", "items": ["item1", "item2"] },
        { "type": "table", "rows": [["header1","header2"],["row1col1","row1col2"]] }
      ]
    }
  ]
}`

func buildStructurePrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You are a JSON converter. Convert the following Business Requirements Document (BRD) text into VALID JSON.\n\n")
	sb.WriteString("CRITICAL REQUIREMENTS:\n")
	sb.WriteString("1. Output ONLY valid JSON - no markdown, no code blocks, no explanations\n")
	sb.WriteString("2. Every opening brace { must have a closing brace }\n")
	sb.WriteString("3. Every opening bracket [ must have a closing bracket ]\n")
	sb.WriteString("4. All strings must be properly quoted with double quotes\n")
	sb.WriteString("5. No trailing commas before closing brackets or braces\n")
	sb.WriteString("6. Escape special characters in strings (quotes, newlines)\n\n")
	sb.WriteString("Required JSON schema:\n")
	sb.WriteString(structureSchema)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Preserve section order from the BRD\n")
	sb.WriteString("- Keep the document title, if any, as the first section with empty content\n")
	sb.WriteString("- Break content into paragraphs, bullets, and tables appropriately\n")
	sb.WriteString("- If content is too long, truncate it rather than breaking JSON syntax\n\n")
	sb.WriteString("BRD Text to convert:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nOutput ONLY the JSON object, nothing else:")
	return sb.String()
}
