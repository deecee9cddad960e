package engine

import (
	"fmt"
	"strings"

	"brdchat/internal/storage"
	"brdchat/internal/tracker"
)

// shortMessageLen is the length below which an unrecognized message gets
// the short help text instead of a model answer.
const shortMessageLen = 10

const (
	historyPreview      = 300
	confirmationPreview = 500
	questionHistory     = 10
)

func welcomeMessage(docID string) string {
	return fmt.Sprintf("Chat session created for BRD %s. You can now:\n"+
		"- Type 'list' to see all sections\n"+
		"- Type 'show N' to view section N\n"+
		"- Type 'update N: your instruction' to modify section N", docID)
}

func helpMessage(sections int) string {
	var sb strings.Builder
	sb.WriteString("Hello! I'm your BRD assistant. I can help you with:\n\n")
	sb.WriteString("- **List sections**: \"list\" or \"show all sections\"\n")
	sb.WriteString("- **View a section**: \"show section 4\" or \"show me section 4\" or \"show stakeholders\"\n")
	sb.WriteString("- **Update a section**: \"change X to Y in section 4\" or \"update section 4: change X to Y\"\n")
	sb.WriteString("- **Context-aware updates**: When viewing a section, say \"change X to Y here\" to update that section\n\n")
	fmt.Fprintf(&sb, "Current BRD has %d sections.\n\n", sections)
	sb.WriteString("What would you like to do?")
	return sb.String()
}

const shortHelpMessage = "I'm here to help with your BRD. You can:\n" +
	"- List sections: 'list'\n" +
	"- Show a section: 'show section 4'\n" +
	"- Update a section: 'change X to Y in section 4'\n\n" +
	"What would you like to do?"

const noUpdatedSectionMessage = "I don't have information about which section was last updated. " +
	"Please specify a section number, e.g., 'show section 4'."

const noShownSectionMessage = "I'm not sure which section you mean by 'here'. " +
	"Please specify a section number, e.g., 'update section 4: change X to Y'."

const missingDocumentMessage = "Error: This BRD has no readable structure or text. Please regenerate the document."

func saveFailedMessage(err error) string {
	return fmt.Sprintf("Error: Failed to save BRD update. %v", err)
}

func vagueQuestionMessage(msg string) string {
	return fmt.Sprintf("I understand you're asking: '%s'. Could you be more specific? "+
		"I can help you list sections, view sections, or update sections in your BRD.", msg)
}

// updatesMessage answers "which sections have I updated" from the replayed
// confirmations, oldest first.
func updatesMessage(snap tracker.Snapshot) string {
	if len(snap.AllUpdated) == 0 {
		return "You haven't updated any sections in this session yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have updated %d section(s) in this session:\n", len(snap.AllUpdated))
	for i, f := range snap.AllUpdated {
		fmt.Fprintf(&sb, "%d. Section %d (%s)\n", i+1, f.Number, f.Title)
	}
	if snap.Updated != nil {
		fmt.Fprintf(&sb, "\nMost recent: Section %d (%s)", snap.Updated.Number, snap.Updated.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func buildQuestionPrompt(msg string, sections int, snap tracker.Snapshot, history []storage.Event) string {
	var sb strings.Builder
	sb.WriteString("You are a BRD assistant helping the user work with their Business Requirements Document.\n\n")
	fmt.Fprintf(&sb, "Current BRD has %d sections.", sections)
	if len(snap.AllUpdated) > 0 {
		parts := make([]string, len(snap.AllUpdated))
		for i, f := range snap.AllUpdated {
			parts[i] = fmt.Sprintf("Section %d (%s)", f.Number, f.Title)
		}
		fmt.Fprintf(&sb, "\n\nAll updated sections found in conversation history:\n%s\nTotal: %d section(s)",
			strings.Join(parts, ", "), len(parts))
	}
	if snap.Shown != nil {
		fmt.Fprintf(&sb, "\n\nThe user is currently viewing section %d (%s).", snap.Shown.Number, snap.Shown.Title)
	}

	if len(history) > questionHistory {
		history = history[len(history)-questionHistory:]
	}
	if len(history) > 0 {
		sb.WriteString("\n\nConversation history:\n")
		for _, ev := range history {
			limit := historyPreview
			if strings.Contains(strings.ToLower(ev.Text), "updated successfully") {
				limit = confirmationPreview
			}
			fmt.Fprintf(&sb, "%s: %s\n", roleLabel(ev.Role), truncate(ev.Text, limit))
		}
	}

	fmt.Fprintf(&sb, "\nUser's current message: %q\n\n", msg)
	sb.WriteString("Available commands:\n")
	sb.WriteString("- list: Show all sections\n")
	sb.WriteString("- show N: Display section N (e.g., \"show section 4\" or \"show 4\")\n")
	sb.WriteString("- update N: instruction: Modify section N (e.g., \"update section 4: change X to Y\")\n\n")
	sb.WriteString("If the user is asking about a section they recently viewed or updated, reference that context from the conversation history.\n")
	sb.WriteString("Please provide a helpful, friendly response.")
	return sb.String()
}

func roleLabel(r storage.Role) string {
	switch r {
	case storage.RoleUser:
		return "User"
	case storage.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
