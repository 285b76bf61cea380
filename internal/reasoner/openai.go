package reasoner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const analysisSystemPrompt = `You compare one person's guess about another person's feelings against what that person actually expressed. Respond with a single JSON object and nothing else, shaped as:
{"alignment":{"score":0-100,"summary":"...","correctlyIdentified":["..."]},"gaps":{"severity":"none|minor|moderate|significant","summary":"...","missedFeelings":["..."],"misattributions":["..."],"mostImportantGap":"..." or null},"recommendation":{"action":"PROCEED|OFFER_OPTIONAL|OFFER_SHARING","rationale":"...","sharingWouldHelp":true|false,"suggestedShareFocus":"..." or null}}`

const suggestionSystemPrompt = `You help someone share a feeling they already expressed, to close an understanding gap. Draw only from the content provided; never invent feelings. Respond with a single JSON object and nothing else, shaped as:
{"suggestedContent":"a short, first-person, feelings-focused statement","reason":"one sentence on why sharing this would help"}`

// OpenAIClient implements Client against the OpenAI chat completion API. Each
// call runs under a strict timeout and behind the availability breaker.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	breaker *AvailabilityBreaker
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration, breaker *AvailabilityBreaker) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if breaker == nil {
		breaker = NewAvailabilityBreaker(3, time.Minute)
	}
	slog.Info("initializing reasoning client", "model", model, "timeout", timeout)
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		breaker: breaker,
	}, nil
}

func (c *OpenAIClient) AnalyzeGap(ctx context.Context, req GapRequest) (*GapAnalysis, error) {
	prompt := fmt.Sprintf(
		"%s guessed how %s is feeling:\n%q\n\nWhat %s actually expressed:\n%q\n\nThemes: %s",
		req.GuesserName, req.SubjectName, req.EmpathyStatement,
		req.SubjectName, req.ActualContent, strings.Join(req.Themes, ", "),
	)
	raw, err := c.complete(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	analysis, err := ParseGapAnalysis(raw)
	if err != nil {
		slog.Warn("gap analysis failed schema validation", "error", err)
		return nil, err
	}
	return analysis, nil
}

func (c *OpenAIClient) SuggestShare(ctx context.Context, req ShareRequest) (*ShareSuggestion, error) {
	prompt := fmt.Sprintf(
		"Understanding gap: %s\n\nWhat this person expressed in their own words:\n%q",
		req.GapContext, req.SubjectRawContent,
	)
	raw, err := c.complete(ctx, suggestionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	suggestion, err := ParseShareSuggestion(raw)
	if err != nil {
		slog.Warn("share suggestion failed schema validation", "error", err)
		return nil, err
	}
	return suggestion, nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		c.breaker.RecordFailure()
		slog.Error("reasoning capability call failed", "error", err)
		return "", fmt.Errorf("reasoning call: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("reasoning call returned no choices")
	}
	c.breaker.RecordSuccess()
	return resp.Choices[0].Message.Content, nil
}
