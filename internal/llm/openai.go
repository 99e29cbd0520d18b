package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"research-rag/internal/resilience"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (llama.cpp server, vLLM, OpenAI).
type OpenAIClient struct {
	client *openai.Client
	model  string
	caller caller
}

// NewOpenAIClient creates a chat client. baseURL includes the /v1 suffix.
func NewOpenAIClient(baseURL, apiKey, model string, opts Options) *OpenAIClient {
	return &OpenAIClient{
		client: newOpenAI(baseURL, apiKey),
		model:  model,
		caller: newCaller("openai", opts),
	}
}

func newOpenAI(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return openai.NewClientWithConfig(cfg)
}

// Complete sends one system + user exchange and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return run(ctx, c.caller, "complete", func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		})
		if err != nil {
			return "", classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// EmbeddingsClient calls an OpenAI-compatible embeddings endpoint.
type EmbeddingsClient struct {
	client       *openai.Client
	model        openai.EmbeddingModel
	expectedSize int
	caller       caller
}

// NewEmbeddingsClient creates an embeddings client. When expectedSize is
// positive every returned vector is checked against it.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, opts Options) *EmbeddingsClient {
	return &EmbeddingsClient{
		client:       newOpenAI(baseURL, apiKey),
		model:        openai.EmbeddingModel(model),
		expectedSize: expectedSize,
		caller:       newCaller("embeddings", opts),
	}
}

// EmbedTexts generates embeddings for the given texts.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	return run(ctx, c.caller, "embed", func(ctx context.Context) ([][]float32, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:          texts,
			Model:          c.model,
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		if err != nil {
			return nil, classifyOpenAIError(err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}

		result := make([][]float32, len(texts))
		for i, data := range resp.Data {
			idx := data.Index
			if idx < 0 || idx >= len(texts) || result[idx] != nil {
				idx = i
			}
			if c.expectedSize > 0 && len(data.Embedding) != c.expectedSize {
				return nil, fmt.Errorf("embedding %d has size %d, expected %d", idx, len(data.Embedding), c.expectedSize)
			}
			result[idx] = data.Embedding
		}
		return result, nil
	})
}

// classifyOpenAIError marks retryable HTTP statuses as transient.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus(fmt.Errorf("api error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err), apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.ClassifyStatus(fmt.Errorf("request error %d: %w", reqErr.HTTPStatusCode, err), reqErr.HTTPStatusCode)
	}
	return err
}
