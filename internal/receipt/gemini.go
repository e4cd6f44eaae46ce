package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/money"
)

const prompt = `Extract every purchased line item from this receipt.
Return the item name as printed, its final price as a decimal string without
currency symbols, and the ISO-4217 currency code of the receipt.
Skip subtotal, total, tax and payment lines.`

// contentGenerator is the slice of *genai.Models the parser needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiParser parses receipts with a Gemini model using a structured JSON
// response schema.
type GeminiParser struct {
	models          contentGenerator
	model           string
	defaultCurrency string
}

// NewGeminiParser connects to the Gemini API with apiKey.
func NewGeminiParser(ctx context.Context, apiKey, model, defaultCurrency string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return newGeminiParser(client.Models, model, defaultCurrency), nil
}

func newGeminiParser(models contentGenerator, model, defaultCurrency string) *GeminiParser {
	return &GeminiParser{models: models, model: model, defaultCurrency: defaultCurrency}
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"item_name": {Type: genai.TypeString},
					"price":     {Type: genai.TypeString, Description: "decimal amount, e.g. 12.50"},
					"currency":  {Type: genai.TypeString, Description: "ISO-4217 code"},
				},
				Required: []string{"item_name", "price"},
			},
		},
	},
	Required: []string{"items"},
}

type parsedReceipt struct {
	Items []struct {
		Name     string      `json:"item_name"`
		Price    json.Number `json:"price"`
		Currency string      `json:"currency"`
	} `json:"items"`
}

// Parse sends the image to the model and decodes its JSON answer.
func (p *GeminiParser) Parse(ctx context.Context, image []byte, mimeType string) ([]Item, error) {
	const op = "parse receipt"

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, ledger.Upstream(op, err)
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, ledger.Upstream(op, err)
	}

	var parsed parsedReceipt
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, ledger.Upstream(op, fmt.Errorf("model returned malformed JSON: %w", err))
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		cur := strings.ToUpper(strings.TrimSpace(it.Currency))
		if !money.KnownCurrency(cur) {
			cur = p.defaultCurrency
		}
		price, err := money.Parse(it.Price.String(), cur)
		if err != nil {
			return nil, ledger.Upstream(op, fmt.Errorf("item %q: %w", it.Name, err))
		}
		items = append(items, Item{Name: strings.TrimSpace(it.Name), Price: price})
	}
	return items, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from model")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from model")
	}
	return b.String(), nil
}
