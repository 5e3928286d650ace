package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"dikt/log"
)

const defaultGroqModel = "whisper-large-v3-turbo"

// Groq sends a multipart upload to the OpenAI-compatible whisper endpoint.
type Groq struct {
	client *TracedClient
	apiURL string
	apiKey string
	model  string
}

func NewGroq(model, apiKey string) *Groq {
	if model == "" {
		model = defaultGroqModel
	}
	apiURL := "https://api.groq.com/openai/v1/audio/transcriptions"
	return &Groq{
		client: NewTracedClient(apiURL),
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) warm() { g.client.Warm() }

type groqResponse struct {
	Text string `json:"text"`
}

func (g *Groq) Transcribe(ctx context.Context, audio []byte, format, language string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}

	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "json")
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, &apiError{provider: "groq", status: resp.StatusCode, body: string(resp.Body)}
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	log.Info("groq rate limit " + remaining + "/" + limit)

	return &Result{
		Text:    strings.TrimSpace(gResp.Text),
		Metrics: resp.Metrics,
	}, nil
}
