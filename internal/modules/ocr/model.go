package ocr

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Image is an encoded picture handed to a provider.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// DataURL renders the image the way browsers embed it.
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURL decodes a base64 data URL such as "data:image/jpeg;base64,...".
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("data url has no payload")
	}
	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, fmt.Errorf("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode data url: %w", err)
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// RecognitionResult is what a provider read from an image.
type RecognitionResult struct {
	RawText          string  `json:"raw_text"`
	Provider         string  `json:"provider"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	Confidence       float64 `json:"confidence"`
}

// Candidate is a product line found on a receipt.
type Candidate struct {
	Name     string              `json:"name"`
	Quantity int                 `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`
}

// Names returns the candidate names in receipt order.
func Names(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}
