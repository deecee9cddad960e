package generation

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// getCodec returns the cl100k_base tokenizer, a reasonable approximation for most models.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TruncateTokens cuts text to at most limit tokens. It falls back to a
// character cut of roughly four characters per token if the codec fails.
func TruncateTokens(text string, limit int) string {
	if limit <= 0 || text == "" {
		return text
	}
	c, err := getCodec()
	if err == nil {
		ids, _, encErr := c.Encode(text)
		if encErr == nil {
			if len(ids) <= limit {
				return text
			}
			if out, decErr := c.Decode(ids[:limit]); decErr == nil {
				return out
			}
		}
	}

	runes := []rune(text)
	if maxRunes := limit * 4; len(runes) > maxRunes {
		return string(runes[:maxRunes])
	}
	return text
}
