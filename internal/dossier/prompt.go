package dossier

import (
	"context"
	"fmt"
	"strings"

	"github.com/kinfolio/dossier-cli/pkg/anthropic"
)

const systemPrompt = `You are a genealogical research assistant. You will be given a raw markdown dossier of source records about one historical individual. Write a contextualized narrative dossier in markdown that:
- opens with a short biographical summary of the person,
- weaves the sources into a chronological account, citing each source by its title,
- notes conflicts or gaps between sources explicitly rather than guessing,
- never invents facts that the sources do not support.
Return only the markdown document.`

// BuildPrompt wraps a raw dossier in the summarization request sent to the
// external model.
func BuildPrompt(rawDocument string) string {
	var b strings.Builder
	b.WriteString("Here is the raw dossier to contextualize:\n\n")
	b.WriteString(rawDocument)
	if !strings.HasSuffix(rawDocument, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// ClaudeSummarizer implements Summarizer on top of the Anthropic client.
type ClaudeSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeSummarizer wires a summarizer to a model.
func NewClaudeSummarizer(client anthropic.Client, model string, maxTokens int64) *ClaudeSummarizer {
	return &ClaudeSummarizer{client: client, model: model, maxTokens: maxTokens}
}

// Summarize sends the prompt and returns the model's text. No retry or
// timeout here; failures propagate to the caller.
func (s *ClaudeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogUsage(s.model, "contextualize")

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("summarizer returned empty response (stop reason %s)", resp.StopReason)
	}
	return text, nil
}
