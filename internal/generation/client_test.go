package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"brdchat/internal/brderr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", chatEndpoint(""))
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", chatEndpoint("http://localhost:11434"))
	assert.Equal(t, "http://host/v1/chat/completions", chatEndpoint("http://host/v1/"))
	assert.Equal(t, "http://host/v1/chat/completions", chatEndpoint("http://host/v1/chat/completions"))
}

func TestOpenAIClient_Invoke(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + "```json\\n{\\\"title\\\":\\\"Scope\\\"}\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-test", srv.URL, 0)
	out, err := c.Invoke(context.Background(), "hello", 512)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Scope"}`, out)
	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("key", "m", srv.URL, 0).Invoke(context.Background(), "x", 0)
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.GenerationEmptyResponse))
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("key", "m", srv.URL, 0).Invoke(context.Background(), "x", 0)
	require.Error(t, err)
	assert.True(t, brderr.Is(err, brderr.GenerationFailed))
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "m", "", 0).Invoke(context.Background(), "x", 0)
	assert.Error(t, err)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "bedrock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported generation provider")

	c, err := New(context.Background(), Options{Provider: "OpenAI", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}

func TestClientFunc(t *testing.T) {
	var c Client = ClientFunc(func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return strings.ToUpper(prompt), nil
	})
	out, err := c.Invoke(context.Background(), "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)
}

func TestCleanOutput(t *testing.T) {
	assert.Equal(t, "plain", cleanOutput("  plain \n"))
	assert.Equal(t, `{"a":1}`, cleanOutput("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "body", cleanOutput("```\nbody\n```"))
	assert.Equal(t, "text with ``` inside", cleanOutput("text with ``` inside"))
}

func TestTokens(t *testing.T) {
	n, err := EstimateTokens("The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	assert.Greater(t, n, 5)

	long := strings.Repeat("requirement ", 200)
	cut := TruncateTokens(long, 10)
	assert.Less(t, len(cut), len(long))
	assert.True(t, strings.HasPrefix(long, cut))

	assert.Equal(t, "short", TruncateTokens("short", 100))
	assert.Equal(t, long, TruncateTokens(long, 0))
}
