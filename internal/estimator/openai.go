package estimator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"polymarket-trader/internal/models"
)

const systemPrompt = `You are a forecasting assistant for binary prediction markets.
Given a market question, reply with a single number between 0 and 1: your
probability that the market resolves YES. Reply with the number only.`

// OpenAI estimates probabilities by asking an OpenAI chat model.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an LLM-backed estimator.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// EstimateYesProbability asks the model for a YES probability.
func (e *OpenAI) EstimateYesProbability(ctx context.Context, market *models.Market) (float64, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: market.Question},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from openai")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	prob, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing probability %q: %w", raw, err)
	}
	if prob < 0 || prob > 1 {
		return 0, fmt.Errorf("probability %f out of range", prob)
	}
	return prob, nil
}
