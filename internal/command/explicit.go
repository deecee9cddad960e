package command

import (
	"regexp"
	"strconv"
	"strings"

	"brdchat/internal/resolver"
)

var (
	explicitShow   = regexp.MustCompile(`(?i)^show\s+(\d+)$`)
	explicitUpdate = regexp.MustCompile(`(?is)^update\s+(\d+):\s*(.+)$`)
	longNumber     = regexp.MustCompile(`\b(\d{3,})\b`)
)

// ParseExplicit reads the terse command form an orchestrating agent may send
// next to the message: "list", "show N" or "update N: instruction". A number
// above 100 is taken as a fragment of a document id, and the command is
// rejected so the caller falls back to parsing the message.
func ParseExplicit(cmd string) (Parsed, bool) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return Parsed{}, false
	}
	if m := longNumber.FindStringSubmatch(cmd); m != nil {
		if n, err := strconv.Atoi(m[1]); err != nil || n > 100 {
			return Parsed{}, false
		}
	}
	if strings.EqualFold(cmd, "list") {
		return Parsed{Intent: IntentList, Rule: "explicit"}, true
	}
	if m := explicitShow.FindStringSubmatch(cmd); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Parsed{Intent: IntentShow, Reference: resolver.Number(n), Rule: "explicit"}, true
	}
	if m := explicitUpdate.FindStringSubmatch(cmd); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Parsed{
			Intent:      IntentEdit,
			Reference:   resolver.Number(n),
			Instruction: strings.TrimSpace(m[2]),
			Rule:        "explicit",
		}, true
	}
	return Parsed{}, false
}
