package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const analystSystemPrompt = `You are a professional financial analyst specializing in NASDAQ stock analysis. Follow the response format in the user's request exactly.`

// BedrockService generates recommendation text with Claude models via AWS
// Bedrock. It implements TextGenerator.
type BedrockService struct {
	client    *bedrockruntime.Client
	model     string
	maxTokens int
	breakers  *BreakerRegistry
}

// claudeRequest is the request format for Claude models via Bedrock.
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response from Claude models.
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockService creates a BedrockService. Calls are guarded by the
// given breaker registry.
func NewBedrockService(ctx context.Context, region, modelID string, maxTokens int, breakers *BreakerRegistry) (*BedrockService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &BedrockService{
		client:    bedrockruntime.NewFromConfig(cfg),
		model:     modelID,
		maxTokens: maxTokens,
		breakers:  breakers,
	}, nil
}

// Generate sends prompt to Claude and returns the raw response text. The
// output follows the labeled-section template only as well as the model
// cooperates; callers must tolerate arbitrary content.
func (s *BedrockService) Generate(ctx context.Context, prompt string) (string, error) {
	request := claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        s.maxTokens,
		Temperature:      0.3,
		System:           analystSystemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	invoke := func() (any, error) {
		return s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(s.model),
			Body:        reqBody,
			ContentType: aws.String("application/json"),
		})
	}

	var output *bedrockruntime.InvokeModelOutput
	if s.breakers != nil {
		result, err := s.breakers.Execute(ctx, BreakerRecommendation, invoke)
		if err != nil {
			return "", fmt.Errorf("failed to invoke model: %w", err)
		}
		output = result.(*bedrockruntime.InvokeModelOutput)
	} else {
		result, err := invoke()
		if err != nil {
			return "", fmt.Errorf("failed to invoke model: %w", err)
		}
		output = result.(*bedrockruntime.InvokeModelOutput)
	}

	var response claudeResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return response.Content[0].Text, nil
}
