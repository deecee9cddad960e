package tracker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const confirmMark = "✅"

var confirmPattern = regexp.MustCompile(`(?i)Section\s+['"](\d+)\.\s*([^'"]+)['"]`)

// Confirmation is the assistant line written after a committed patch. The
// tracker recovers "last updated" state from it, so the wording is load-bearing.
func Confirmation(number int, title string) string {
	return fmt.Sprintf("%s Section '%d. %s' updated successfully", confirmMark, number, title)
}

// ParseConfirmation extracts the section named by an update confirmation.
func ParseConfirmation(text string) (Focus, bool) {
	if !isConfirmation(text) {
		return Focus{}, false
	}
	m := confirmPattern.FindStringSubmatch(text)
	if m == nil {
		return Focus{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Focus{}, false
	}
	return Focus{Number: n, Title: strings.TrimSpace(m[2])}, true
}

func isConfirmation(text string) bool {
	return strings.Contains(strings.ToLower(text), "updated successfully") ||
		(strings.Contains(text, confirmMark) && strings.Contains(text, "Section"))
}

// looksLikeConfirmation is the looser check used to keep confirmations out of
// "currently viewed" detection.
func looksLikeConfirmation(text string) bool {
	return isConfirmation(text) || strings.Contains(text, confirmMark) || strings.Contains(text, "Section '")
}
