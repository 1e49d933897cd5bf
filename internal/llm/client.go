// Package llm wraps the Gemini API behind a narrow client interface
// and adds the request pacing and quota-retry behavior the ingestion
// pipeline depends on.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/receipt-buddy/internal/prompts"
)

const pdfMIMEType = "application/pdf"

// Client is the inference surface the pipeline needs: one receipt
// document in, raw model text out.
type Client interface {
	// GenerateFromPDF sends the PDF bytes to the model and returns the
	// raw text response.
	GenerateFromPDF(ctx context.Context, data []byte) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client            *genai.Client
	model             string
	temperature       float32
	systemInstruction string
}

// NewGeminiClient creates a Gemini-backed client using the embedded
// receipt transcription system prompt.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:            client,
		model:             model,
		temperature:       temperature,
		systemInstruction: prompts.MustGet("receipt.json", "system"),
	}, nil
}

// GenerateFromPDF sends the receipt PDF to the model as an inline blob.
func (c *GeminiClient) GenerateFromPDF(ctx context.Context, data []byte) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(c.systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Blob{
		MIMEType: pdfMIMEType,
		Data:     data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
