package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLogMessage(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.SendLogMessage("ERROR", "all endpoints down", map[string]interface{}{
		"term":      "Geesthacht",
		"endpoints": 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "opendata-aggregator", got.Username)
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "all endpoints down", embed.Description)
	assert.Equal(t, 0xFF0000, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "endpoints", embed.Fields[0].Name)
	assert.Equal(t, "2", embed.Fields[0].Value)
	assert.Equal(t, "term", embed.Fields[1].Name)
}

func TestSendMessageWithoutWebhookIsNoop(t *testing.T) {
	c := NewClient("")
	assert.NoError(t, c.SendMessage(WebhookMessage{Content: "ignored"}))
}

func TestSendMessageNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendMessage(WebhookMessage{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSendLogMessageTruncatesOnRuneBoundary(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	// One ASCII byte shifts every two-byte umlaut so one straddles the limit.
	message := "x" + strings.Repeat("ü", maxEmbedDescription)
	require.NoError(t, NewClient(srv.URL).SendLogMessage("ERROR", message, nil))

	require.Len(t, got.Embeds, 1)
	desc := got.Embeds[0].Description
	assert.True(t, utf8.ValidString(desc))
	assert.LessOrEqual(t, len(desc), maxEmbedDescription)
	assert.Equal(t, maxEmbedDescription-1, len(desc))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Geest", truncate("Geesthacht", 5))
	assert.Equal(t, "kurz", truncate("kurz", 10))
	assert.Equal(t, "L", truncate("Lü", 2))
	assert.Equal(t, "Lü", truncate("Lü", 3))
}
