package reconstruct

import (
	"regexp"
	"strings"
)

var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON finds the JSON object in a model response. It tries a fenced
// block, then the first balanced object. A response cut off mid-object
// yields everything from the first unclosed brace, which the repair
// pipeline can still close.
func ExtractJSON(raw string) (string, bool) {
	candidates := jsonCandidates(raw)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// jsonCandidates lists the possible JSON objects in raw, best first: a
// fenced block, then every top-level balanced object in order, then the
// unclosed tail. Prose such as "Note {draft}:" ahead of the real object
// only adds an earlier candidate.
func jsonCandidates(raw string) []string {
	var out []string
	if m := fencedObject.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	for i := 0; i < len(raw); {
		start := strings.IndexByte(raw[i:], '{')
		if start < 0 {
			break
		}
		start += i
		end := balancedEnd(raw, start)
		if end < 0 {
			out = append(out, strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw[start:]), "```")))
			break
		}
		out = append(out, raw[start:end])
		i = end
	}
	return out
}

// balancedEnd returns the offset just past the object opened at start, or -1
// if it never closes. Braces inside strings are ignored.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
