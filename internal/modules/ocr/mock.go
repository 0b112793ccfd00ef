package ocr

import (
	"context"
	"fmt"
	"time"
)

// MockReceiptText is the receipt the mock provider "reads" from every image.
const MockReceiptText = `FRESH MART
123 Market Street
WHOLE MILK          2.49
WHOLE WHEAT BREAD   3.19
2 x EGGS          5.98
CHEDDAR CHEESE      4.75 A
BANANAS             1.29
SUBTOTAL           17.70
TAX                 0.00
TOTAL              17.70
VISA               17.70
THANK YOU FOR SHOPPING`

// MockProvider returns a fixed receipt without performing recognition.
type MockProvider struct {
	Text  string
	Delay time.Duration
}

// NewMockProvider creates a mock provider returning MockReceiptText.
func NewMockProvider() *MockProvider {
	return &MockProvider{Text: MockReceiptText, Delay: 200 * time.Millisecond}
}

func (p *MockProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *MockProvider) Process(ctx context.Context, img Image, progress ProgressFunc) (*RecognitionResult, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrOCR)
	}
	start := time.Now()
	const steps = 4
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrOCR, ctx.Err())
		case <-time.After(p.Delay / steps):
		}
		report(progress, i*100/steps)
	}
	return &RecognitionResult{
		RawText:          p.Text,
		Provider:         string(ProviderMock),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Confidence:       1,
	}, nil
}
