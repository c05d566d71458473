package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const (
	DefaultModel = "gemini-2.5-flash"
	// Thinking models count reasoning tokens against the output budget.
	maxOutputTokens = 16384
)

type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient implements Generator against any OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	hasKey bool
}

func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		hasKey: cfg.APIKey != "",
	}
}

// Configured reports whether an API key was supplied.
func (c *OpenAIClient) Configured() bool {
	return c.hasKey
}

// Ping lists the provider's models, which exercises the key and the
// endpoint without spending tokens.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if !c.hasKey {
		return ErrMisconfigured
	}
	if _, err := c.client.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (c *OpenAIClient) Analyze(ctx context.Context, resumeText, jobDescription string, analysisType AnalysisType, opts Options) (string, error) {
	prompt, err := promptFor(analysisType, opts)
	if err != nil {
		return "", err
	}

	temperature := float32(0.4)
	if analysisType == AnalysisCoverLetter {
		temperature = 0.8
	}
	return c.complete(ctx, withInputs(prompt, resumeText, jobDescription), temperature, false)
}

func (c *OpenAIClient) TailorResume(ctx context.Context, resumeText, jobDescription string) (*TailoredResume, error) {
	raw, err := c.complete(ctx, withInputs(tailoredResumePrompt, resumeText, jobDescription), 0.4, true)
	if err != nil {
		return nil, err
	}
	return ParseTailoredResume(raw)
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temperature float32, jsonMode bool) (string, error) {
	if !c.hasKey {
		return "", ErrMisconfigured
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps provider failures onto ErrQuota and ErrMisconfigured and
// leaves everything else as is.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrQuota, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") {
		return fmt.Errorf("%w: %v", ErrQuota, err)
	}
	if strings.Contains(msg, "api key") {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	return err
}
