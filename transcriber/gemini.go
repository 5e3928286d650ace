package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"dikt/encoder"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini transcribes through the Gemini generative API with a transcription
// system prompt. The SDK owns the transport, so no NetworkMetrics here.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(model, apiKey string) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, format, language string) (*Result, error) {
	lang := languageName(language)
	system := fmt.Sprintf(`You are a professional %[1]s language transcriber.
Your task is to transcribe the provided %[1]s language audio accurately.
Respond ONLY with the exact transcription in %[1]s script.
Do not include any explanations, notes, or additional text.
Do not translate the content.`, lang)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(
				"Please transcribe this %s audio. Return ONLY the transcription without any explanations.", lang)),
			genai.NewPartFromBytes(audio, encoder.MIMEType(format)),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &apiError{provider: "gemini", status: apiErr.Code, body: apiErr.Message}
		}
		return nil, err
	}

	return &Result{Text: strings.TrimSpace(resp.Text())}, nil
}
