package ocr

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"
)

const extractionPrompt = `Transcribe this shopping receipt exactly as printed.
Return plain text only, one receipt line per output line, keeping item names and prices on the same line.
Do not add commentary, headings or markdown.`

// geminiProvider reads receipts with a Gemini vision model.
type geminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider backed by client. The client is owned by the caller.
func NewGeminiProvider(client *genai.Client, model string) Provider {
	return &geminiProvider{client: client, model: model}
}

func (p *geminiProvider) IsAvailable(ctx context.Context) bool {
	if p.client == nil || p.model == "" {
		return false
	}
	_, err := p.client.Models.Get(ctx, p.model, nil)
	return err == nil
}

func (p *geminiProvider) Process(ctx context.Context, img Image, progress ProgressFunc) (*RecognitionResult, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrOCR)
	}
	start := time.Now()
	report(progress, 10)

	temperature := float32(0)
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
			{Text: extractionPrompt},
		},
	}}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", ErrOCR, err)
	}
	report(progress, 90)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrOCR)
	}
	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("%w: no text recognised", ErrOCR)
	}

	confidence := 0.0
	if candidate.AvgLogprobs != 0 {
		confidence = math.Exp(candidate.AvgLogprobs)
	}
	report(progress, 100)
	return &RecognitionResult{
		RawText:          text.String(),
		Provider:         string(ProviderGemini),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Confidence:       confidence,
	}, nil
}
