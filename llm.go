package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

const shiftSummarySystemPrompt = `You write one short paragraph (2-3 sentences) summarizing a
manufacturing quality-control shift for a floor-shop Slack channel. Plain
language, no headings, no bullet points. Mention the inspection backlog,
critical items if any, and how the day went. Reply with the paragraph only.`

// SummarizeShiftReport asks the configured LLM for a short narrative
// paragraph over the already-formatted shift numbers. Callers treat errors
// as non-fatal: the numeric report posts either way.
func SummarizeShiftReport(cfg Config, reportText string) (string, LLMUsage, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		return callAnthropic(cfg.AnthropicAPIKey, model, shiftSummarySystemPrompt, reportText)
	default:
		return "", LLMUsage{}, fmt.Errorf("llm provider not configured")
	}
}

func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
