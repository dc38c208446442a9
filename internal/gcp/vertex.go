package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Structuring model settings ---
const (
	StructuringMaxOutputTokens int32   = 4000
	StructuringTemperature     float32 = 0.1
)

// --- Page recognizer prompts ---
const RecognizerSystemPrompt = "You are an optical character recognition engine. You transcribe scanned insurance application pages exactly as printed, line by line, without summarising, correcting or reordering anything."
const RecognizerUserPrompt = `You will be provided with a single page of a scanned PDF document.

Transcribe every line of printed or handwritten text on the page:

1.  Output one array element per visual line, in reading order (top to bottom, left to right).
2.  Keep the text of a line exactly as written, including labels such as "DOB:" and any checkbox answers.
3.  For tables, output each row as one line with cells separated by " | ".
4.  Ignore page numbers, watermarks and empty form fields.

The output MUST be a single valid JSON array of strings. Do not include any text before or after the JSON array.`

// ErrNoCandidates is returned when the model response carries no text.
var ErrNoCandidates = errors.New("vertex: response contained no text candidates")

// VertexClient holds all pre-configured generative models for the pipeline.
type VertexClient struct {
	StructuringModel *genai.GenerativeModel
	RecognizerModel  *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the structuring model ---
	// The extraction template carries its own instructions, so there is no
	// system instruction here.
	structuringModel := baseClient.GenerativeModel(modelName)
	structuringModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(StructuringTemperature),
		MaxOutputTokens:  genai.Ptr(StructuringMaxOutputTokens),
	}

	// --- Configure the page recognizer model ---
	recognizerModel := baseClient.GenerativeModel(modelName)
	recognizerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RecognizerSystemPrompt)},
	}
	recognizerModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	recognizerModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		StructuringModel: structuringModel,
		RecognizerModel:  recognizerModel,
		baseClient:       baseClient,
	}, nil
}

// Generate sends a fully rendered prompt to the structuring model and returns
// the concatenated text of the first candidate.
func (c *VertexClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.StructuringModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := extractText(resp)
	if text == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}

// RecognizePage transcribes one single-page PDF into its text lines.
func (c *VertexClient) RecognizePage(ctx context.Context, page []byte) ([]string, error) {
	resp, err := c.RecognizerModel.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: page},
		genai.Text(RecognizerUserPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to recognize page with gemini: %w", err)
	}
	text := extractText(resp)
	if text == "" {
		// An empty page is a valid page.
		return nil, nil
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(strings.TrimSuffix(text, "```"))

	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		return nil, fmt.Errorf("failed to parse recognized lines: %w", err)
	}
	return lines, nil
}

// extractText robustly gets the raw text content from the model response.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
