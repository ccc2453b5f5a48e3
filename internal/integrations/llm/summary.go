package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Reports can be long for elections with many questions; the model only
// needs the head to describe the outcome.
const maxReportPromptChars = 24000

const summarySystemPrompt = `You write short plain-language summaries of election results for a general audience.
Rules:
- Use only the numbers and names that appear in the report. Never estimate or invent figures.
- Name the winners of each question and mention the turnout when it is given.
- Keep it to at most three sentences per question, no headings, no markdown tables.
- Answers marked "N." did not win.`

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Summarizer turns a rendered text report into a short explanation.
type Summarizer struct {
	APIKey string
	Model  string
}

var callAnthropicFn = callAnthropic

func (s Summarizer) Summarize(ctx context.Context, election, report string) (string, LLMUsage, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		return "", LLMUsage{}, fmt.Errorf("empty report for %s", election)
	}
	model := s.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	if len(report) > maxReportPromptChars {
		report = report[:maxReportPromptChars]
	}
	userPrompt := fmt.Sprintf("Election: %s\n\nReport:\n%s", election, report)

	log.Printf("llm summary election=%s model=%s report_chars=%d", election, model, len(report))
	text, usage, err := callAnthropicFn(ctx, s.APIKey, model, summarySystemPrompt, userPrompt)
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(text), usage, nil
}

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(externalHTTPClient),
	)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
