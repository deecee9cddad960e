package generation

import (
	"strings"

	"brdchat/internal/brderr"
)

// cleanOutput strips a code fence wrapping the whole response.
func cleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if lang == "" || !strings.ContainsAny(lang, " {[\"") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

func finish(provider, text string) (string, error) {
	text = cleanOutput(text)
	if text == "" {
		return "", brderr.New(brderr.GenerationEmptyResponse, "%s returned an empty response", provider)
	}
	return text, nil
}
