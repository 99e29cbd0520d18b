package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"research-rag/internal/resilience"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient implements Completer with the Anthropic Messages API.
type AnthropicClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	caller    caller
}

// NewAnthropicClient creates a Messages API client. Extra request options
// (for example option.WithBaseURL) are passed to the SDK.
func NewAnthropicClient(apiKey, model string, opts Options, reqOpts ...option.RequestOption) *AnthropicClient {
	// retries are handled by the shared caller
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, reqOpts...)
	return &AnthropicClient{
		client:    sdk.NewClient(all...),
		model:     model,
		maxTokens: defaultAnthropicMaxTokens,
		caller:    newCaller("anthropic", opts),
	}
}

// Complete sends the prompt as a single user turn and concatenates text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	return run(ctx, c.caller, "complete", func(ctx context.Context) (string, error) {
		msg, err := c.client.Messages.New(ctx, params)
		if err != nil {
			var apiErr *sdk.Error
			if errors.As(err, &apiErr) {
				return "", resilience.ClassifyStatus(fmt.Errorf("anthropic: create message: %w", err), apiErr.StatusCode)
			}
			return "", fmt.Errorf("anthropic: create message: %w", err)
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("anthropic: no text content in response")
		}
		return sb.String(), nil
	})
}
