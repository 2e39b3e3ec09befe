package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
	"unicode/utf8"
)

const maxEmbedDescription = 4096

type WebhookMessage struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Timestamp   time.Time `json:"timestamp"`
	Fields      []Field   `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Client posts messages to a single Discord webhook. A client with an empty
// webhook URL silently drops everything.
type Client struct {
	webhookURL string
	username   string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		username:   "opendata-aggregator",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) SendMessage(msg WebhookMessage) error {
	if c.webhookURL == "" {
		return nil
	}
	if msg.Username == "" {
		msg.Username = c.username
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling webhook message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status: %d", resp.StatusCode)
	}

	return nil
}

// SendLogMessage posts a log line as a colored embed. Fields are emitted in
// key order so repeated alerts look the same.
func (c *Client) SendLogMessage(level, message string, fields map[string]interface{}) error {
	message = truncate(message, maxEmbedDescription)

	embed := Embed{
		Title:       fmt.Sprintf("%s: open data aggregator", level),
		Description: message,
		Color:       colorForLevel(level),
		Timestamp:   time.Now().UTC(),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		embed.Fields = append(embed.Fields, Field{
			Name:   k,
			Value:  fmt.Sprintf("%v", fields[k]),
			Inline: true,
		})
	}

	return c.SendMessage(WebhookMessage{Embeds: []Embed{embed}})
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func colorForLevel(level string) int {
	switch level {
	case "ERROR":
		return 0xFF0000
	case "FATAL":
		return 0x8B0000
	case "WARN":
		return 0xFFA500
	default:
		return 0x808080
	}
}
